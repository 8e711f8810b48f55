package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/services/metrics"
)

// Login outcomes, as reported to the metrics.
const (
	loginOK              = "ok"
	loginFailed          = "failed"
	loginDeactivated     = "deactivated"
	loginDaycareInactive = "daycare_inactive"
)

var (
	tokenContextKey   = "userToken"
	contextUserKey    = "user"
	contextDaycareKey = "daycare"
)

// Claims represents the authorization claims transmitted via a JWT.
// The daycare id is the tenant every request of the token is scoped to.
type Claims struct {
	jwt.StandardClaims
	DaycareID string `json:"daycare_id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Dashboard",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		DaycareID: usr.DaycareID,
		Name:      usr.Name,
		Email:     usr.Email,
		Role:      usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf      *core.Config
	recSvc    *record.Service
	usrSvc    user.ServiceInterface
	metrics   *metrics.Metrics
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, recSvc *record.Service, usrSvc user.ServiceInterface, m *metrics.Metrics) *authenticator {
	return &authenticator{
		conf:    conf,
		recSvc:  recSvc,
		usrSvc:  usrSvc,
		metrics: m,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

func (a *authenticator) observe(outcome string) {
	if a.metrics != nil {
		a.metrics.ObserveLogin(outcome)
	}
}

// daycareOf returns the daycare of usr. Only an ACTIVE daycare lets its users in.
func (a *authenticator) daycareOf(ctx echo.Context, usr user.User) (*daycare.Daycare, error) {
	rec, err := a.recSvc.Get(ctx.Request().Context(), usr.DaycareID, lifecycle.KindDaycare, usr.DaycareID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, errDaycareInactive
		}
		return nil, errors.Wrap(err, "finding user's daycare")
	}
	d, ok := rec.(*daycare.Daycare)
	if !ok || !d.AllowsLogin() {
		return nil, errDaycareInactive
	}
	return d, nil
}

// login checks the credentials & the user's daycare, then issues a token.
func (a *authenticator) login(ctx echo.Context, email, pwd string) (string, error) {
	usr, err := a.usrSvc.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrAuthFailed:
			a.observe(loginFailed)
			return "", errAuthenticationFailed
		case user.ErrAccountDeactivated:
			a.observe(loginDeactivated)
			return "", errAccountDeactivated
		}
		return "", errors.Wrap(err, "authenticating")
	}
	if _, err = a.daycareOf(ctx, usr); err != nil {
		if err == errDaycareInactive {
			a.observe(loginDaycareInactive)
		}
		return "", err
	}

	token, err := GenerateToken(a.conf, GetUserClaims(a.conf, usr))
	if err != nil {
		return "", errors.Wrap(err, "generating token")
	}
	a.observe(loginOK)
	return token, nil
}

// tenantMiddleware loads the user & daycare of the token into the context.
// Requests of deactivated users or of daycares that are not ACTIVE are refused,
// even with a token issued earlier.
func (a *authenticator) tenantMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := a.usrSvc.GetByID(ctx.Request().Context(), claims.DaycareID, claims.Subject)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound || errors.Cause(err) == core.ErrTenantRequired {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			d, err := a.daycareOf(ctx, usr)
			if err != nil {
				return err
			}

			ctx.Set(contextUserKey, usr)
			ctx.Set(contextDaycareKey, d)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// tenantID returns the id of the daycare the request is scoped to.
func tenantID(ctx echo.Context) string {
	if d, ok := ctx.Get(contextDaycareKey).(*daycare.Daycare); ok {
		return d.ID
	}
	return ""
}
