package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
)

type assignmentApi struct {
	svc      *assignment.Service
	validate *validator.Validate
}

func registerAssignmentAPI(
	pg *echo.Group,
	tg *echo.Group,
	svc *assignment.Service,
	validate *validator.Validate,
) {
	api := assignmentApi{
		svc:      svc,
		validate: validate,
	}

	pag := pg.Group("/assignments")
	pag.GET("", api.patientAssignments)
	pag.GET("/:id", api.retrieve)
	pag.POST("/:id/submit", api.submit)

	tag := tg.Group("/assignments")
	tag.POST("", api.create)
	tag.GET("", api.therapistAssignments)
	tag.GET("/:id", api.retrieve)
	tag.POST("/:id/review", api.review)
	tag.DELETE("/:id", api.destroy)
}

// Handlers

func (api *assignmentApi) patientAssignments(ctx echo.Context) error {
	filter := new(assignment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assignment.Assignment{})
	}
	ordering := bindOrdering(ctx, assignment.OrderingFields)

	as, err := api.svc.ForPatient(ctx.Request().Context(), getContextIdentity(ctx).Email, *filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if as == nil {
		as = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *assignmentApi) therapistAssignments(ctx echo.Context) error {
	filter := new(assignment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assignment.Assignment{})
	}
	ordering := bindOrdering(ctx, assignment.OrderingFields)

	as, err := api.svc.ForTherapist(ctx.Request().Context(), getContextIdentity(ctx).Email, *filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if as == nil {
		as = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), getContextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	var data assignment.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).Email, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *assignmentApi) review(ctx echo.Context) error {
	var data assignment.Review
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).Email, data)
	if err != nil {
		return errors.Wrap(err, "reviewing assignment")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), getContextIdentity(ctx).Email); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
