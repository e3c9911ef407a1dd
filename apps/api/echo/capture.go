package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type captureApi struct {
	svc      *capture.Service
	pairing  *pairing.Service
	validate *validator.Validate
}

func registerCaptureAPI(
	pg *echo.Group,
	tg *echo.Group,
	svc *capture.Service,
	pairingSvc *pairing.Service,
	validate *validator.Validate,
) {
	api := captureApi{
		svc:      svc,
		pairing:  pairingSvc,
		validate: validate,
	}

	pg.POST("/heart-rates", api.recordHeartRate)
	pg.GET("/heart-rates", api.recentHeartRates)
	pg.GET("/heart-rates/latest", api.latestHeartRate)

	pg.POST("/blood-pressures", api.recordBloodPressure)
	pg.GET("/blood-pressures", api.recentBloodPressures)
	pg.GET("/blood-pressures/latest", api.latestBloodPressure)

	pg.POST("/speech-rates", api.recordSpeechRate)
	pg.GET("/speech-rates", api.recentSpeechRates)
	pg.GET("/speech-rates/latest", api.latestSpeechRate)

	tg.GET("/patients/:email/speech-rates", api.patientSpeechRates, ownPatientMiddleware(pairingSvc))
}

// ownPatientMiddleware lets the request through only when the :email patient is paired with the context therapist.
func ownPatientMiddleware(svc *pairing.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := svc.EnsureTherapistOf(ctx.Request().Context(), getContextIdentity(ctx).Email, pathEmail(ctx))
			if err != nil {
				return errors.Wrap(err, "checking patient")
			}
			return next(ctx)
		}
	}
}

// Heart rates

func (api *captureApi) recordHeartRate(ctx echo.Context) error {
	var data capture.NewHeartRate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHeartRate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	hr, err := api.svc.RecordHeartRate(ctx.Request().Context(), getContextIdentity(ctx).Email, data)
	if err != nil {
		return errors.Wrap(err, "recording heart rate")
	}
	return ctx.JSON(http.StatusCreated, hr)
}

func (api *captureApi) recentHeartRates(ctx echo.Context) error {
	hrs, err := api.svc.RecentHeartRates(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "querying heart rates")
	}
	if hrs == nil {
		hrs = []capture.HeartRate{}
	}
	return ctx.JSON(http.StatusOK, hrs)
}

func (api *captureApi) latestHeartRate(ctx echo.Context) error {
	hr, err := api.svc.LatestHeartRate(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "finding latest heart rate")
	}
	return ctx.JSON(http.StatusOK, hr)
}

// Blood pressures

func (api *captureApi) recordBloodPressure(ctx echo.Context) error {
	var data capture.NewBloodPressure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBloodPressure")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	bp, err := api.svc.RecordBloodPressure(ctx.Request().Context(), getContextIdentity(ctx).Email, data)
	if err != nil {
		return errors.Wrap(err, "recording blood pressure")
	}
	return ctx.JSON(http.StatusCreated, bp)
}

func (api *captureApi) recentBloodPressures(ctx echo.Context) error {
	bps, err := api.svc.RecentBloodPressures(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "querying blood pressures")
	}
	if bps == nil {
		bps = []capture.BloodPressure{}
	}
	return ctx.JSON(http.StatusOK, bps)
}

func (api *captureApi) latestBloodPressure(ctx echo.Context) error {
	bp, err := api.svc.LatestBloodPressure(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "finding latest blood pressure")
	}
	return ctx.JSON(http.StatusOK, bp)
}

// Speech rates

func (api *captureApi) recordSpeechRate(ctx echo.Context) error {
	var data capture.NewSpeechRate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSpeechRate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sr, err := api.svc.RecordSpeechRate(ctx.Request().Context(), getContextIdentity(ctx).Email, data)
	if err != nil {
		return errors.Wrap(err, "recording speech rate")
	}
	return ctx.JSON(http.StatusCreated, sr)
}

func (api *captureApi) recentSpeechRates(ctx echo.Context) error {
	return api.speechRatesOf(ctx, getContextIdentity(ctx).Email)
}

func (api *captureApi) patientSpeechRates(ctx echo.Context) error {
	return api.speechRatesOf(ctx, pathEmail(ctx))
}

func (api *captureApi) speechRatesOf(ctx echo.Context, patientEmail string) error {
	srs, err := api.svc.RecentSpeechRates(ctx.Request().Context(), patientEmail)
	if err != nil {
		return errors.Wrap(err, "querying speech rates")
	}
	if srs == nil {
		srs = []capture.SpeechRate{}
	}
	return ctx.JSON(http.StatusOK, srs)
}

func (api *captureApi) latestSpeechRate(ctx echo.Context) error {
	sr, err := api.svc.LatestSpeechRate(ctx.Request().Context(), getContextIdentity(ctx).Email)
	if err != nil {
		return errors.Wrap(err, "finding latest speech rate")
	}
	return ctx.JSON(http.StatusOK, sr)
}
