// Package space publishes point-in-time copies of workspaces and collects their ratings.
package space

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/block"
)

const (
	SortRating = "rating"
	SortViews  = "views"
	SortDate   = "date"

	DefaultLimit = 20
	MaxStars     = 5

	anonymousOwner = "Anonymous"
	publishedTmpl  = "space_published"

	raterUIDPrefix = "uid:"
	raterFPPrefix  = "fp:"
)

var (
	// errors
	ErrNotFound      = errors.New("space not found")
	ErrAuthRequired  = errors.New("you must be signed in to publish")
	ErrRaterRequired = errors.New("sign in or send a client fingerprint to rate")
	ErrInvalidSort   = errors.New("sort must be one of rating, views, date")
	ErrMissingBlocks = errors.New("published blocks are unreadable")
)

type (
	Space struct {
		ID               string    `json:"id"`
		Title            string    `json:"title"`
		OwnerID          string    `json:"owner_uid"`
		OwnerDisplayName string    `json:"owner_display_name"`
		Blocks           string    `json:"blocks"` // serialized snapshot
		PublishedAt      time.Time `json:"published_at"`
		IsPublic         bool      `json:"is_public"`
		ViewCount        int64     `json:"view_count"`
		Rating           float64   `json:"rating"`
		RatingCount      int       `json:"rating_count"`
	}

	NewSpace struct {
		Title    string `json:"title" validate:"notblank,max=200"`
		IsPublic bool   `json:"is_public"`
	}

	Rating struct {
		SpaceID   string    `json:"space_id"`
		RaterID   string    `json:"rater_id"`
		Stars     int       `json:"stars"`
		Review    string    `json:"review"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	NewRating struct {
		Stars  int    `json:"stars" validate:"required,stars"`
		Review string `json:"review" validate:"max=2000"`
	}

	// Aggregate summarizes the ratings of a space. Histogram[i] counts ratings of i+1 stars.
	Aggregate struct {
		Average   float64       `json:"average"`
		Count     int           `json:"count"`
		Histogram [MaxStars]int `json:"histogram"`
	}

	// PublicQuery selects public spaces. An empty Sort asks for no ordering and no limit.
	PublicQuery struct {
		Sort  string
		Limit int
	}

	Repository interface {
		CreateSpace(ctx context.Context, sp Space) (Space, error)
		GetSpace(ctx context.Context, id string) (Space, error)
		// IncrementViews atomically adds one view and returns the new count.
		IncrementViews(ctx context.Context, id string) (int64, error)
		// QueryPublicSpaces may fail with a core.CodeMissingIndex StoreError when q.Sort is set.
		QueryPublicSpaces(ctx context.Context, q PublicQuery) ([]Space, error)
		// QuerySpacesByOwner returns the newest first when ordered is set, which may
		// fail with a core.CodeMissingIndex StoreError.
		QuerySpacesByOwner(ctx context.Context, ownerID string, ordered bool) ([]Space, error)
		// UpsertRating creates or replaces the rating of (r.SpaceID, r.RaterID), keeping the
		// original CreatedAt, and refreshes the space's rating and rating count from all of
		// its ratings. Both happen atomically.
		UpsertRating(ctx context.Context, r Rating) (Rating, error)
		// QueryRatings returns the ratings of a space, most recently updated first.
		QueryRatings(ctx context.Context, spaceID string) ([]Rating, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		mailer   core.EmailService
		logger   core.Logger
		conf     *core.Config
		nowFunc  func() time.Time
	}
)

func (ns *NewSpace) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	return validate.Struct(ns)
}

func (nr *NewRating) Validate(validate *validator.Validate) error {
	nr.Review = core.CleanString(nr.Review)
	return validate.Struct(nr)
}

// BlockList decodes the published snapshot.
func (sp Space) BlockList() ([]block.Block, error) {
	blocks, err := block.Deserialize(sp.Blocks)
	if err != nil {
		return nil, errors.Wrap(ErrMissingBlocks, err.Error())
	}
	return blocks, nil
}

// ShareLink is the public address of the space.
func ShareLink(conf *core.Config, id string) string {
	return conf.FrontendBaseURL + "/view/" + id
}

// Fingerprint derives an anonymous rater identity from client characteristics.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// RaterID is the key a rating is stored under: the account of a signed-in rater,
// or the client fingerprint of an anonymous one.
func RaterID(id core.Identity, fingerprint string) (string, error) {
	if id.IsAuthenticated() {
		return raterUIDPrefix + id.UID, nil
	}
	if fingerprint = strings.TrimSpace(fingerprint); fingerprint != "" {
		return raterFPPrefix + fingerprint, nil
	}
	return "", ErrRaterRequired
}

func NewService(repo Repository, validate *validator.Validate, mailer core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		mailer:   mailer,
		logger:   logger,
		conf:     conf,
		nowFunc:  time.Now,
	}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

// CheckPublish runs the checks of Publish that need no store: ns is cleaned and
// validated, and the owner must be signed in.
func (svc *Service) CheckPublish(owner core.Identity, ns *NewSpace) error {
	if err := ns.Validate(svc.validate); err != nil {
		return err
	}
	if !owner.IsAuthenticated() {
		return ErrAuthRequired
	}
	return nil
}

// Publish stores a copy of blocks under a new id. Later edits of the workspace do not reach it.
func (svc *Service) Publish(ctx context.Context, owner core.Identity, ns NewSpace, blocks []block.Block) (Space, error) {
	if err := svc.CheckPublish(owner, &ns); err != nil {
		return Space{}, err
	}

	snapshot, err := block.Serialize(blocks)
	if err != nil {
		return Space{}, errors.Wrap(err, "serializing blocks")
	}
	ownerName := core.CleanString(owner.DisplayName)
	if ownerName == "" {
		ownerName = anonymousOwner
	}

	sp, err := svc.repo.CreateSpace(ctx, Space{
		ID:               uuid.NewString(),
		Title:            ns.Title,
		OwnerID:          owner.UID,
		OwnerDisplayName: ownerName,
		Blocks:           snapshot,
		PublishedAt:      svc.now(),
		IsPublic:         ns.IsPublic,
	})
	if err != nil {
		return Space{}, errors.Wrap(err, "creating space")
	}

	svc.notifyPublished(owner, sp)
	return sp, nil
}

func (svc *Service) notifyPublished(owner core.Identity, sp Space) {
	if owner.Email == "" || svc.mailer == nil {
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: sp.OwnerDisplayName, Address: owner.Email}},
		Subject:      "Your space is published",
		TemplateName: publishedTmpl,
		TemplateData: map[string]interface{}{
			"OwnerName": sp.OwnerDisplayName,
			"Title":     sp.Title,
			"IsPublic":  sp.IsPublic,
			"ShareLink": ShareLink(svc.conf, sp.ID),
		},
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Space, error) {
	if id == "" {
		return Space{}, ErrNotFound
	}
	return svc.repo.GetSpace(ctx, id)
}

// View returns the space and counts one view. A failed increment is only logged.
func (svc *Service) View(ctx context.Context, id string) (Space, error) {
	sp, err := svc.Get(ctx, id)
	if err != nil {
		return Space{}, err
	}
	views, err := svc.repo.IncrementViews(ctx, id)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("space: incrementing views of %s: %v", id, err), err)
		return sp, nil
	}
	sp.ViewCount = views
	return sp, nil
}

// ListPublic returns up to limit public spaces in the given order (rating by default).
func (svc *Service) ListPublic(ctx context.Context, sortBy string, limit int) ([]Space, error) {
	if sortBy == "" {
		sortBy = SortRating
	}
	if sortBy != SortRating && sortBy != SortViews && sortBy != SortDate {
		return nil, ErrInvalidSort
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	spaces, err := svc.repo.QueryPublicSpaces(ctx, PublicQuery{Sort: sortBy, Limit: limit})
	if err == nil {
		return spaces, nil
	}
	if !core.IsMissingIndex(err) {
		return nil, errors.Wrap(err, "querying public spaces")
	}

	svc.logger.Warn(fmt.Sprintf("space: missing index for public spaces by %s, sorting in memory", sortBy))
	spaces, err = svc.repo.QueryPublicSpaces(ctx, PublicQuery{})
	if err != nil {
		return nil, errors.Wrap(err, "querying public spaces")
	}
	SortSpaces(spaces, sortBy)
	if len(spaces) > limit {
		spaces = spaces[:limit]
	}
	return spaces, nil
}

// ListByOwner returns the spaces published by ownerID, newest first.
func (svc *Service) ListByOwner(ctx context.Context, ownerID string) ([]Space, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}
	spaces, err := svc.repo.QuerySpacesByOwner(ctx, ownerID, true)
	if err == nil {
		return spaces, nil
	}
	if !core.IsMissingIndex(err) {
		return nil, errors.Wrap(err, "querying owner spaces")
	}

	svc.logger.Warn("space: missing index for owner spaces, sorting in memory")
	spaces, err = svc.repo.QuerySpacesByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying owner spaces")
	}
	SortSpaces(spaces, SortDate)
	return spaces, nil
}

// Rate records the rating of raterID for a space, replacing any earlier one.
func (svc *Service) Rate(ctx context.Context, spaceID, raterID string, nr NewRating) (Rating, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Rating{}, err
	}
	if raterID == "" {
		return Rating{}, ErrRaterRequired
	}
	if _, err := svc.Get(ctx, spaceID); err != nil {
		return Rating{}, err
	}

	now := svc.now()
	r, err := svc.repo.UpsertRating(ctx, Rating{
		SpaceID:   spaceID,
		RaterID:   raterID,
		Stars:     nr.Stars,
		Review:    nr.Review,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Rating{}, errors.Wrap(err, "saving rating")
	}
	return r, nil
}

// Ratings returns the ratings of a space by recency and their aggregate.
func (svc *Service) Ratings(ctx context.Context, spaceID string) ([]Rating, Aggregate, error) {
	if _, err := svc.Get(ctx, spaceID); err != nil {
		return nil, Aggregate{}, err
	}
	ratings, err := svc.repo.QueryRatings(ctx, spaceID)
	if err != nil {
		return nil, Aggregate{}, errors.Wrap(err, "querying ratings")
	}
	return ratings, Summarize(ratings), nil
}

// Summarize computes the average and per-star histogram of ratings.
func Summarize(ratings []Rating) Aggregate {
	var (
		agg   Aggregate
		total int
	)
	for _, r := range ratings {
		if r.Stars < 1 || r.Stars > MaxStars {
			continue
		}
		agg.Histogram[r.Stars-1]++
		agg.Count++
		total += r.Stars
	}
	if agg.Count > 0 {
		agg.Average = float64(total) / float64(agg.Count)
	}
	return agg
}

// SortSpaces orders spaces in place: best rated, most viewed or newest first.
func SortSpaces(spaces []Space, sortBy string) {
	sort.SliceStable(spaces, func(i, j int) bool {
		a, b := spaces[i], spaces[j]
		switch sortBy {
		case SortViews:
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
		case SortDate:
		default:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
}
