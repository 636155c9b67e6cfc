// Package profile holds the academic details of signed-in students.
package profile

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
)

const defaultFullName = "User"

var (
	// Streams a profile may belong to.
	Streams = []string{"CSE", "ECE", "ME", "IT", "EEE", "CE", "Chemical", "Biotech"}

	// errors
	ErrNotFound = errors.New("profile not found")
	ErrExists   = errors.New("profile already exists")
)

type (
	Profile struct {
		UID       string    `json:"uid"`
		FullName  string    `json:"full_name"`
		Email     string    `json:"email"`
		College   string    `json:"college"`
		Stream    string    `json:"stream"`
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// UpdateProfile carries the fields to change. Nil fields are left as they are.
	UpdateProfile struct {
		FullName *string `json:"full_name" validate:"omitempty,max=100"`
		College  *string `json:"college" validate:"omitempty,max=200"`
		Stream   *string `json:"stream" validate:"omitempty,stream"`
	}

	Repository interface {
		GetProfile(ctx context.Context, uid string) (Profile, error)
		// CreateProfile returns ErrExists when uid already has a profile.
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		// UpdateProfile merge-writes the non-nil fields of upd.
		UpdateProfile(ctx context.Context, uid string, upd UpdateProfile, at time.Time) (Profile, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		nowFunc  func() time.Time
	}
)

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	for _, fld := range []*string{up.FullName, up.College, up.Stream} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	return validate.Struct(up)
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate, nowFunc: time.Now}
}

func (svc *Service) Get(ctx context.Context, uid string) (Profile, error) {
	return svc.repo.GetProfile(ctx, uid)
}

// Ensure returns the profile of id, creating it on first sign-in.
func (svc *Service) Ensure(ctx context.Context, id core.Identity) (Profile, error) {
	if !id.IsAuthenticated() {
		return Profile{}, ErrNotFound
	}
	p, err := svc.repo.GetProfile(ctx, id.UID)
	if err == nil {
		return p, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Profile{}, errors.Wrap(err, "getting profile")
	}

	fullName := core.CleanString(id.DisplayName)
	if fullName == "" {
		fullName = defaultFullName
	}
	p, err = svc.repo.CreateProfile(ctx, Profile{
		UID:       id.UID,
		FullName:  fullName,
		Email:     id.Email,
		UpdatedAt: svc.nowFunc().UTC(),
	})
	if errors.Cause(err) == ErrExists { // created concurrently
		return svc.repo.GetProfile(ctx, id.UID)
	}
	if err != nil {
		return Profile{}, errors.Wrap(err, "creating profile")
	}
	return p, nil
}

func (svc *Service) Update(ctx context.Context, uid string, upd UpdateProfile) (Profile, error) {
	if err := upd.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	return svc.repo.UpdateProfile(ctx, uid, upd, svc.nowFunc().UTC())
}
