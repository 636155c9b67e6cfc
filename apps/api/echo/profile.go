package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/studyspace/core/profile"
)

type profileAPI struct {
	svc *profile.Service
}

func registerProfileAPI(g *echo.Group, auth *authenticator, deps ServerDeps) {
	api := &profileAPI{svc: deps.ProfileSvc}

	g.GET("/profile", api.get, auth.required())
	g.PUT("/profile", api.update, auth.required())
}

// get returns the caller's profile, creating the default one on first access.
func (api *profileAPI) get(ctx echo.Context) error {
	prof, err := api.svc.Ensure(ctx.Request().Context(), contextIdentity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileAPI) update(ctx echo.Context) error {
	var upd profile.UpdateProfile
	if err := ctx.Bind(&upd); err != nil {
		return err
	}
	prof, err := api.svc.Update(ctx.Request().Context(), contextIdentity(ctx).UID, upd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}
