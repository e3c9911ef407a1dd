package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type pairingApi struct {
	svc      *pairing.Service
	validate *validator.Validate
}

func registerPairingAPI(
	pg *echo.Group,
	tg *echo.Group,
	svc *pairing.Service,
	validate *validator.Validate,
) {
	api := pairingApi{
		svc:      svc,
		validate: validate,
	}

	// patient endpoints
	pg.GET("/invitations", api.patientInvitations)
	pg.POST("/invitations/accept", api.acceptInvitation)
	pg.POST("/invitations/reject", api.rejectInvitation)
	pg.GET("/therapist", api.therapist)
	pg.PUT("/therapist", api.selfAssign)
	pg.DELETE("/therapist", api.unassignTherapist)

	// therapist endpoints
	tg.POST("/invitations", api.sendInvitation)
	tg.GET("/invitations", api.therapistInvitations)
	tg.GET("/patients", api.patients)
	tg.DELETE("/patients/:email", api.unassignPatient)
}

// pathEmail returns the unescaped :email path param.
func pathEmail(ctx echo.Context) string {
	email := ctx.Param("email")
	if unescaped, err := url.PathUnescape(email); err == nil {
		email = unescaped
	}
	return core.CleanString(email)
}

// Patient handlers

func (api *pairingApi) patientInvitations(ctx echo.Context) error {
	invs, err := api.svc.PendingForPatient(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "querying invitations")
	}
	if invs == nil {
		invs = []pairing.Invitation{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *pairingApi) acceptInvitation(ctx echo.Context) error {
	var data TherapistRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TherapistRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.AcceptInvitation(ctx.Request().Context(), getContextIdentity(ctx).Email, data.TherapistEmail); err != nil {
		return errors.Wrap(err, "accepting invitation")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Invitation accepted."})
}

func (api *pairingApi) rejectInvitation(ctx echo.Context) error {
	var data TherapistRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TherapistRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RejectInvitation(ctx.Request().Context(), getContextIdentity(ctx).Email, data.TherapistEmail); err != nil {
		return errors.Wrap(err, "rejecting invitation")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Invitation rejected."})
}

func (api *pairingApi) therapist(ctx echo.Context) error {
	t, err := api.svc.TherapistOf(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "finding therapist")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *pairingApi) selfAssign(ctx echo.Context) error {
	var data TherapistRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TherapistRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SelfAssignTherapist(ctx.Request().Context(), getContextIdentity(ctx).Email, data.TherapistEmail); err != nil {
		return errors.Wrap(err, "assigning therapist")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Therapist assigned."})
}

func (api *pairingApi) unassignTherapist(ctx echo.Context) error {
	if err := api.svc.UnassignByPatient(ctx.Request().Context(), getContextIdentity(ctx).Email); err != nil {
		return errors.Wrap(err, "unassigning therapist")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Therapist handlers

func (api *pairingApi) sendInvitation(ctx echo.Context) error {
	var data InvitationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InvitationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SendInvitation(ctx.Request().Context(), getContextIdentity(ctx), data.PatientEmail); err != nil {
		return errors.Wrap(err, "sending invitation")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Invitation sent."})
}

func (api *pairingApi) therapistInvitations(ctx echo.Context) error {
	invs, err := api.svc.PendingFromTherapist(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "querying invitations")
	}
	if invs == nil {
		invs = []pairing.Invitation{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *pairingApi) patients(ctx echo.Context) error {
	members, err := api.svc.PatientsOf(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "querying patients")
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *pairingApi) unassignPatient(ctx echo.Context) error {
	if err := api.svc.UnassignByTherapist(ctx.Request().Context(), getContextIdentity(ctx).Email, pathEmail(ctx)); err != nil {
		return errors.Wrap(err, "unassigning patient")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	InvitationRequest struct {
		PatientEmail string `json:"patient_email" validate:"required,email"`
	}

	TherapistRequest struct {
		TherapistEmail string `json:"therapist_email" validate:"required,email"`
	}
)

func (ir *InvitationRequest) Validate(validate *validator.Validate) error {
	ir.PatientEmail = core.CleanString(ir.PatientEmail)
	return validate.Struct(ir)
}

func (tr *TherapistRequest) Validate(validate *validator.Validate) error {
	tr.TherapistEmail = core.CleanString(tr.TherapistEmail)
	return validate.Struct(tr)
}
