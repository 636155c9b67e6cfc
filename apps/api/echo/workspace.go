package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/block"
	"github.com/trezcool/studyspace/core/workspace"
)

const maxUploadSize = 20 << 20

type (
	workspaceAPI struct {
		manager *workspace.Manager
	}

	workspaceResponse struct {
		Blocks []block.Block    `json:"blocks"`
		Status workspace.Status `json:"status"`
	}

	replaceRequest struct {
		Blocks []block.Block `json:"blocks"`
	}

	moveRequest struct {
		BlockID     string `json:"block_id"`
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Index       int    `json:"index"`
	}

	driveImportRequest struct {
		AccessToken string `json:"access_token"`
		FileID      string `json:"file_id"`
		Name        string `json:"name"`
	}
)

func registerWorkspaceAPI(g *echo.Group, auth *authenticator, deps ServerDeps) {
	api := &workspaceAPI{manager: deps.Workspaces}

	ws := g.Group("/workspace", auth.optional())
	ws.GET("", api.get)
	ws.PUT("", api.replace)
	ws.POST("/flush", api.flush)
	ws.GET("/status", api.status)
	ws.GET("/items/:container", api.items)
	ws.POST("/blocks", api.createBlock)
	ws.PATCH("/blocks/:id", api.updateBlock)
	ws.DELETE("/blocks/:id", api.deleteBlock)
	ws.POST("/moves", api.move)
	ws.GET("/files", api.files)
	ws.POST("/files/drive", api.importDriveFile)
	ws.POST("/files/upload", api.uploadFile)

	g.POST("/workspace/sign-in", api.signIn, auth.required())
	g.POST("/workspace/sign-out", api.signOut, auth.required())
}

func (api *workspaceAPI) session(ctx echo.Context) (*workspace.Session, error) {
	return api.manager.Open(ctx.Request().Context(), contextIdentity(ctx))
}

func respondWithWorkspace(ctx echo.Context, code int, s *workspace.Session) error {
	return ctx.JSON(code, workspaceResponse{Blocks: s.Blocks(), Status: s.Status()})
}

func (api *workspaceAPI) get(ctx echo.Context) error {
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	return respondWithWorkspace(ctx, http.StatusOK, s)
}

func (api *workspaceAPI) replace(ctx echo.Context) error {
	var req replaceRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	if req.Blocks == nil {
		req.Blocks = []block.Block{}
	}
	if err = s.Replace(req.Blocks); err != nil {
		return err
	}
	return respondWithWorkspace(ctx, http.StatusOK, s)
}

func (api *workspaceAPI) flush(ctx echo.Context) error {
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	if err = s.Flush(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "flushing workspace")
	}
	return ctx.JSON(http.StatusOK, s.Status())
}

func (api *workspaceAPI) status(ctx echo.Context) error {
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.Status())
}

func (api *workspaceAPI) items(ctx echo.Context) error {
	c, err := block.ParseContainer(ctx.Param("container"))
	if err != nil {
		return err
	}
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	items, err := s.Items(c)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, items)
}

// decodeBlock reads a new block from the request body, along with the optional
// container to create it in (the root by default). A body carrying only a type
// yields a nil content, which starts the block with placeholder content.
func decodeBlock(ctx echo.Context) (block.ContainerID, block.Kind, block.Content, error) {
	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return "", "", nil, errors.Wrap(err, "reading block")
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(data, &fields); err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusBadRequest, "invalid block").SetInternal(err)
	}

	dst := block.Root
	if raw, ok := fields["container"]; ok {
		var name string
		if err = json.Unmarshal(raw, &name); err != nil {
			return "", "", nil, echo.NewHTTPError(http.StatusBadRequest, "invalid container").SetInternal(err)
		}
		if dst, err = block.ParseContainer(name); err != nil {
			return "", "", nil, err
		}
	}
	delete(fields, "container")
	delete(fields, "id")
	delete(fields, "createdAt")

	if len(fields) == 1 {
		if raw, ok := fields["type"]; ok {
			var kind block.Kind
			if err = json.Unmarshal(raw, &kind); err != nil {
				return "", "", nil, echo.NewHTTPError(http.StatusBadRequest, "invalid block type").SetInternal(err)
			}
			return dst, kind, nil, nil
		}
	}

	var b block.Block
	if err = json.Unmarshal(data, &b); err != nil {
		return "", "", nil, err
	}
	return dst, b.Kind(), b.Content, nil
}

func (api *workspaceAPI) createBlock(ctx echo.Context) error {
	dst, kind, content, err := decodeBlock(ctx)
	if err != nil {
		return err
	}
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	b, err := s.CreateIn(dst, kind, content)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

// updateBlock changes only the fields present in the body.
func (api *workspaceAPI) updateBlock(ctx echo.Context) error {
	patch, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading block")
	}
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	b, err := s.Patch(ctx.Param("id"), patch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *workspaceAPI) deleteBlock(ctx echo.Context) error {
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	if err = s.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *workspaceAPI) move(ctx echo.Context) error {
	var req moveRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	src, err := block.ParseContainer(req.Source)
	if err != nil {
		return err
	}
	dst, err := block.ParseContainer(req.Destination)
	if err != nil {
		return err
	}
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	if err = s.Move(req.BlockID, src, dst, req.Index); err != nil {
		return err
	}
	return respondWithWorkspace(ctx, http.StatusOK, s)
}

func (api *workspaceAPI) files(ctx echo.Context) error {
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	files, err := s.Files(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *workspaceAPI) importDriveFile(ctx echo.Context) error {
	var req driveImportRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if req.AccessToken == "" || req.FileID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access_token and file_id are required")
	}
	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	b, err := s.ImportDriveFile(ctx.Request().Context(), req.AccessToken, req.FileID, req.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *workspaceAPI) uploadFile(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required").SetInternal(err)
	}
	if fh.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		return errors.Wrap(err, "reading upload")
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}

	s, err := api.session(ctx)
	if err != nil {
		return err
	}
	b, err := s.UploadFile(ctx.Request().Context(), fh.Filename, contentType, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

// signIn hands the caller's guest draft, named by X-Guest-ID, over to their account.
func (api *workspaceAPI) signIn(ctx echo.Context) error {
	s, migrated, err := api.manager.SignIn(ctx.Request().Context(), guestID(ctx), contextIdentity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"migrated": migrated,
		"blocks":   s.Blocks(),
		"status":   s.Status(),
	})
}

func (api *workspaceAPI) signOut(ctx echo.Context) error {
	if err := api.manager.SignOut(ctx.Request().Context(), contextIdentity(ctx)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
