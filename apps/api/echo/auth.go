package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
)

const (
	tokenContextKey   = "userToken"
	guestIDHeader     = "X-Guest-ID"
	fingerprintHeader = "X-Client-Fingerprint"
	tokenAudience     = "StudySpace"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	DisplayName  string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
}

// authenticator issues ID tokens and provides the middlewares checking them.
type authenticator struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

// required rejects requests without a valid token.
func (a *authenticator) required() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.config)
}

// optional checks the token only when the request carries one.
func (a *authenticator) optional() echo.MiddlewareFunc {
	conf := a.config
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(conf)
}

func (a *authenticator) claimsFor(acc account.Account, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   acc.UID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		DisplayName:  acc.DisplayName,
		Email:        acc.Email,
	}
}

// GenerateToken signs claims with the app secret.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// IssueToken returns a fresh ID token for acc.
func IssueToken(conf *core.Config, acc account.Account) (string, error) {
	return GenerateToken(conf, newAuthenticator(conf).claimsFor(acc))
}

func getContextClaims(ctx echo.Context) (Claims, bool) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, true
		}
	}
	return Claims{}, false
}

// contextIdentity is the signed-in user, or the guest named by the X-Guest-ID header.
func contextIdentity(ctx echo.Context) core.Identity {
	if claims, ok := getContextClaims(ctx); ok {
		return core.Identity{UID: claims.Subject, DisplayName: claims.DisplayName, Email: claims.Email}
	}
	return core.Identity{GuestID: guestID(ctx)}
}

func guestID(ctx echo.Context) string {
	return strings.TrimSpace(ctx.Request().Header.Get(guestIDHeader))
}

// refreshToken reissues the token of the context user while the refresh window is open.
func (a *authenticator) refreshToken(ctx echo.Context, svc *account.Service) (string, error) {
	claims, ok := getContextClaims(ctx)
	if !ok {
		return "", errUnauthorized
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	acc, err := svc.GetByUID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "getting context account")
	}
	return GenerateToken(a.conf, a.claimsFor(acc, claims.OrigIssuedAt))
}
