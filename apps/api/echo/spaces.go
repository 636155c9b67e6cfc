package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/block"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
)

type (
	spaceAPI struct {
		conf       *core.Config
		svc        *space.Service
		workspaces *workspace.Manager
	}

	spaceResponse struct {
		space.Space
		Blocks    []block.Block `json:"blocks"`
		ShareLink string        `json:"share_link"`
	}

	publishRequest struct {
		space.NewSpace
		// Blocks, when set, are published instead of the caller's workspace.
		Blocks []block.Block `json:"blocks"`
	}

	ratingsResponse struct {
		Ratings   []space.Rating  `json:"ratings"`
		Aggregate space.Aggregate `json:"aggregate"`
	}
)

func registerSpaceAPI(g *echo.Group, auth *authenticator, limit echo.MiddlewareFunc, deps ServerDeps) {
	api := &spaceAPI{conf: deps.Conf, svc: deps.SpaceSvc, workspaces: deps.Workspaces}

	spaces := g.Group("/spaces")
	spaces.POST("", api.publish, auth.required())
	spaces.GET("", api.listPublic)
	spaces.GET("/mine", api.listMine, auth.required())
	spaces.GET("/:id", api.view, limit)
	spaces.GET("/:id/ratings", api.ratings, limit)
	spaces.POST("/:id/ratings", api.rate, limit, auth.optional())
}

// newSpaceResponse decodes the snapshot for the client. A space with an unreadable
// snapshot is still returned, with no blocks.
func (api *spaceAPI) newSpaceResponse(sp space.Space) spaceResponse {
	blocks, err := sp.BlockList()
	if err != nil {
		blocks = []block.Block{}
	}
	return spaceResponse{Space: sp, Blocks: blocks, ShareLink: space.ShareLink(api.conf, sp.ID)}
}

func (api *spaceAPI) newSpaceResponses(spaces []space.Space) []spaceResponse {
	resp := make([]spaceResponse, len(spaces))
	for i, sp := range spaces {
		resp[i] = api.newSpaceResponse(sp)
	}
	return resp
}

// publish snapshots the caller's workspace, or the blocks sent with the request.
func (api *spaceAPI) publish(ctx echo.Context) error {
	var req publishRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	// reject bad requests before the workspace is loaded
	owner := contextIdentity(ctx)
	if err := api.svc.CheckPublish(owner, &req.NewSpace); err != nil {
		return err
	}

	blocks := req.Blocks
	if blocks == nil {
		s, err := api.workspaces.Open(ctx.Request().Context(), owner)
		if err != nil {
			return errors.Wrap(err, "opening workspace")
		}
		blocks = s.Blocks()
	} else if err := block.Validate(blocks); err != nil {
		return err
	}

	sp, err := api.svc.Publish(ctx.Request().Context(), owner, req.NewSpace, blocks)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.newSpaceResponse(sp))
}

func (api *spaceAPI) listPublic(ctx echo.Context) error {
	limit := 0
	if l := ctx.QueryParam("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}
	spaces, err := api.svc.ListPublic(ctx.Request().Context(), ctx.QueryParam("sort"), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.newSpaceResponses(spaces))
}

func (api *spaceAPI) listMine(ctx echo.Context) error {
	spaces, err := api.svc.ListByOwner(ctx.Request().Context(), contextIdentity(ctx).UID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.newSpaceResponses(spaces))
}

func (api *spaceAPI) view(ctx echo.Context) error {
	sp, err := api.svc.View(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.newSpaceResponse(sp))
}

func (api *spaceAPI) ratings(ctx echo.Context) error {
	ratings, agg, err := api.svc.Ratings(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if ratings == nil {
		ratings = []space.Rating{}
	}
	return ctx.JSON(http.StatusOK, ratingsResponse{Ratings: ratings, Aggregate: agg})
}

// clientFingerprint identifies anonymous raters: the client-supplied fingerprint,
// or one derived from request characteristics.
func clientFingerprint(ctx echo.Context) string {
	req := ctx.Request()
	if fp := req.Header.Get(fingerprintHeader); fp != "" {
		return fp
	}
	return space.Fingerprint(req.UserAgent(), req.Header.Get("Accept-Language"), ctx.RealIP())
}

func (api *spaceAPI) rate(ctx echo.Context) error {
	var nr space.NewRating
	if err := ctx.Bind(&nr); err != nil {
		return err
	}
	raterID, err := space.RaterID(contextIdentity(ctx), clientFingerprint(ctx))
	if err != nil {
		return err
	}
	r, err := api.svc.Rate(ctx.Request().Context(), ctx.Param("id"), raterID, nr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}
