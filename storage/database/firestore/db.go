// Package firestorerepos implements the repositories on Cloud Firestore.
package firestorerepos

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trezcool/studyspace/core"
)

const (
	accountsColl   = "accounts"
	profilesColl   = "profiles"
	coursesColl    = "courses"
	chaptersColl   = "chapters"
	workspacesColl = "user_workspaces"
	filesColl      = "user_files"
	spacesColl     = "published_spaces"
	ratingsColl    = "ratings"
)

// Open connects to the project's default database. The client honors FIRESTORE_EMULATOR_HOST.
func Open(ctx context.Context, conf *core.Config) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, conf.Storage.FirestoreProject)
	if err != nil {
		return nil, errors.Wrap(err, "opening firestore client")
	}
	return client, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// storeErr turns the conditions callers act on into core.StoreError values.
// Firestore reports queries lacking a composite index as FailedPrecondition.
func storeErr(err error, op string) error {
	switch status.Code(err) {
	case codes.FailedPrecondition:
		return core.NewStoreError(core.CodeMissingIndex, op, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return core.NewStoreError(core.CodeUnavailable, op, err)
	}
	return errors.Wrap(err, op)
}
