package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/studyspace/core/course"
)

type courseAPI struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, auth *authenticator, deps ServerDeps) {
	api := &courseAPI{svc: deps.CourseSvc}

	courses := g.Group("/courses", auth.required())
	courses.GET("", api.list)
	courses.GET("/:id", api.get)
	courses.GET("/:id/chapters", api.chapters)
	courses.GET("/:id/chapters/:chapterId", api.chapter)
}

func (api *courseAPI) list(ctx echo.Context) error {
	courses, err := api.svc.ListForStream(ctx.Request().Context(), ctx.QueryParam("stream"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseAPI) get(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseAPI) chapters(ctx echo.Context) error {
	chapters, err := api.svc.Chapters(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, chapters)
}

func (api *courseAPI) chapter(ctx echo.Context) error {
	ch, err := api.svc.Chapter(ctx.Request().Context(), ctx.Param("id"), ctx.Param("chapterId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ch)
}
