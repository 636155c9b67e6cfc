package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/profile"
)

type (
	accountAPI struct {
		auth     *authenticator
		svc      *account.Service
		profiles *profile.Service
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	tokenResponse struct {
		Token   string          `json:"token"`
		Account account.Account `json:"account"`
	}
)

func registerAccountAPI(g *echo.Group, auth *authenticator, deps ServerDeps) {
	api := &accountAPI{auth: auth, svc: deps.AccountSvc, profiles: deps.ProfileSvc}

	accounts := g.Group("/accounts")
	accounts.POST("/signup", api.signup)
	accounts.POST("/login", api.login)
	accounts.POST("/token-refresh", api.refreshToken, auth.required())
}

func (api *accountAPI) respondWithToken(ctx echo.Context, code int, acc account.Account) error {
	if _, err := api.profiles.Ensure(ctx.Request().Context(), acc.Identity()); err != nil {
		return errors.Wrap(err, "ensuring profile")
	}
	token, err := GenerateToken(api.auth.conf, api.auth.claimsFor(acc))
	if err != nil {
		return err
	}
	return ctx.JSON(code, tokenResponse{Token: token, Account: acc})
}

func (api *accountAPI) signup(ctx echo.Context) error {
	var na account.NewAccount
	if err := ctx.Bind(&na); err != nil {
		return err
	}
	acc, err := api.svc.SignUp(ctx.Request().Context(), na)
	if err != nil {
		return err
	}
	return api.respondWithToken(ctx, http.StatusCreated, acc)
}

func (api *accountAPI) login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	acc, err := api.svc.SignIn(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return api.respondWithToken(ctx, http.StatusOK, acc)
}

func (api *accountAPI) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token})
}
