package echoapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

const contextAccountKey = "account"

var nowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Name string       `json:"name,omitempty"`
	Role account.Role `json:"role"`
}

func getAccountClaims(conf *core.Config, id account.Identity) *Claims {
	now := nowFunc()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name: id.Name,
		Role: id.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the account Identity.
func GenerateToken(conf *core.Config, id account.Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, getAccountClaims(conf, id))
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf *core.Config
	svc  *account.Service
}

func newAuthenticator(conf *core.Config, svc *account.Service) *authenticator {
	return &authenticator{conf: conf, svc: svc}
}

// middleware authenticates the request with either Basic or Bearer credentials
// and rejects accounts whose role does not match (RoleAny matches both).
func (a *authenticator) middleware(role account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			header := req.Header.Get(echo.HeaderAuthorization)

			var acc account.Credentials
			var err error
			switch {
			case len(header) > 6 && strings.EqualFold(header[:6], "basic "):
				acc, err = a.basic(req, role)
			case len(header) > 7 && strings.EqualFold(header[:7], "bearer "):
				acc, err = a.bearer(req.Context(), header[7:], role)
			default:
				ctx.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+a.conf.AppName+`"`)
				return errUnauthorized
			}
			if err != nil {
				return err
			}

			ctx.Set(contextAccountKey, acc)
			return next(ctx)
		}
	}
}

func (a *authenticator) basic(req *http.Request, role account.Role) (account.Credentials, error) {
	email, pwd, ok := req.BasicAuth()
	if !ok {
		return nil, errUnauthorized
	}

	ctx := req.Context()
	acc, err := a.svc.Authenticate(ctx, email, pwd, role)
	if err == nil {
		return acc, nil
	}
	if errors.Cause(err) != account.ErrAuthenticationFailed {
		return nil, errors.Wrap(err, "authenticating")
	}
	if role == account.RoleAny {
		return nil, errUnauthorized
	}

	// valid credentials for the other role
	if _, err = a.svc.Authenticate(ctx, email, pwd, account.RoleAny); err == nil {
		return nil, errHttpForbidden
	} else if errors.Cause(err) != account.ErrAuthenticationFailed {
		return nil, errors.Wrap(err, "authenticating")
	}
	return nil, errUnauthorized
}

func (a *authenticator) bearer(ctx context.Context, tokenStr string, role account.Role) (account.Credentials, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		strings.TrimSpace(tokenStr),
		claims,
		func(*jwt.Token) (interface{}, error) { return []byte(a.conf.SecretKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.conf.AppName),
		jwt.WithTimeFunc(nowFunc),
	)
	if err != nil {
		return nil, errUnauthorized
	}
	if role != account.RoleAny && claims.Role != role {
		return nil, errHttpForbidden
	}

	acc, err := a.svc.Get(ctx, claims.Role, claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "finding account")
	}
	return acc, nil
}

func getContextAccount(ctx echo.Context) (account.Credentials, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Credentials); ok {
		return acc, nil
	}
	return nil, errUnauthorized
}

// getContextIdentity must only be called behind the auth middleware.
func getContextIdentity(ctx echo.Context) account.Identity {
	acc, err := getContextAccount(ctx)
	if err != nil {
		return account.Identity{}
	}
	return acc.Identity()
}
