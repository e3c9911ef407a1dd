package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type accountApi struct {
	auth     *authenticator
	svc      *account.Service
	pairing  *pairing.Service
	validate *validator.Validate
}

func registerAccountAPI(
	g *echo.Group,
	authed echo.MiddlewareFunc,
	auth *authenticator,
	svc *account.Service,
	pairingSvc *pairing.Service,
	validate *validator.Validate,
) {
	api := accountApi{
		auth:     auth,
		svc:      svc,
		pairing:  pairingSvc,
		validate: validate,
	}

	// un-authed endpoints
	// TODO: rate limit `/auth/login`
	g.POST("/patients", api.signUpPatient)
	g.POST("/therapists", api.signUpTherapist)
	g.POST("/auth/login", api.login)

	// authed endpoints
	mg := g.Group("/me", authed)
	mg.GET("", api.me)
	mg.PUT("/password", api.changePassword)
}

// Handlers

func (api *accountApi) signUpPatient(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.SignUpPatient(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up patient")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *accountApi) signUpTherapist(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.SignUpTherapist(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up therapist")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password, data.Role)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	id := acc.Identity()
	token, err := GenerateToken(api.auth.conf, id)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Identity: id})
}

func (api *accountApi) me(ctx echo.Context) error {
	resp := MeResponse{Identity: getContextIdentity(ctx)}
	if resp.Role == account.RolePatient {
		switch t, err := api.pairing.TherapistOf(ctx.Request().Context(), resp.Email); {
		case err == nil:
			resp.Therapist = &t
		case errors.Cause(err) != pairing.ErrNotAssigned:
			return errors.Wrap(err, "finding therapist")
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	acc, err := getContextAccount(ctx)
	if err != nil {
		return err
	}

	var data account.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), acc, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

type (
	LoginRequest struct {
		Email    string       `json:"email" validate:"required"`
		Password string       `json:"password" validate:"required"`
		Role     account.Role `json:"role" validate:"omitempty,oneof=patient therapist"`
	}

	LoginResponse struct {
		Token string `json:"token"`
		account.Identity
	}

	MeResponse struct {
		account.Identity
		Therapist *pairing.Member `json:"therapist,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email)
	lr.Role = account.Role(core.CleanString(string(lr.Role), true /* lower */))
	return validate.Struct(lr)
}
