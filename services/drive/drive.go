// Package drivesvc shares Google Drive files picked by users.
package drivesvc

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/workspace"
)

// Granter acts with the user's own OAuth access token, so no server credentials are involved.
type Granter struct {
	endpoint string
}

var _ workspace.Granter = (*Granter)(nil)

func NewGranter(conf *core.Config) *Granter {
	return &Granter{endpoint: conf.Drive.Endpoint}
}

func (g *Granter) GrantPublicRead(ctx context.Context, accessToken, fileID string) error {
	if accessToken == "" {
		return errors.New("missing drive access token")
	}
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "creating drive client")
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err = srv.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return errors.Wrapf(err, "sharing drive file %s", fileID)
	}
	return nil
}
