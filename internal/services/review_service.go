package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abhirana780/medical-backend/internal/platform/textutil"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const (
	reviewIDPrefix     = "rev_"
	reviewEventCreated = "review.created"
	reviewEventDeleted = "review.deleted"

	defaultTopReviews = 6
	maxTopReviews     = 50
	maxReviewComment  = 2000
)

var (
	// ErrReviewInvalidInput indicates validation failures for review operations.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewProductNotFound indicates the reviewed product does not exist.
	ErrReviewProductNotFound = errors.New("review: product not found")
	// ErrReviewNotFound indicates a review could not be located on the product.
	ErrReviewNotFound = errors.New("review: not found")
	// ErrReviewDuplicate is returned when the user already reviewed the product.
	ErrReviewDuplicate = errors.New("review: product already reviewed")
	// ErrReviewNotAuthorized indicates the actor may not remove the review.
	ErrReviewNotAuthorized = errors.New("review: not authorized")
	// ErrReviewConflict signals the product changed concurrently too often to apply the update.
	ErrReviewConflict = errors.New("review: conflict")
)

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Sanitizer   func(string) string
	Events      ReviewEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type reviewService struct {
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	sanitize func(string) string
	events   ReviewEventPublisher
	logger   func(context.Context, string, map[string]any)
}

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Products == nil {
		return nil, errors.New("review service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return reviewIDPrefix + ulid.Make().String()
		}
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		sanitize = textutil.PlainText
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &reviewService{
		products: deps.Products,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		sanitize: sanitize,
		events:   deps.Events,
		logger:   logger,
	}, nil
}

func (s *reviewService) Add(ctx context.Context, cmd AddReviewCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	userID := strings.TrimSpace(cmd.Actor.UserID)
	if productID == "" || userID == "" {
		return Product{}, fmt.Errorf("%w: product and user are required", ErrReviewInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return Product{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}
	comment := s.sanitize(cmd.Comment)
	if comment == "" {
		return Product{}, fmt.Errorf("%w: comment is required", ErrReviewInvalidInput)
	}
	if len([]rune(comment)) > maxReviewComment {
		return Product{}, fmt.Errorf("%w: comment exceeds %d characters", ErrReviewInvalidInput, maxReviewComment)
	}

	name := strings.TrimSpace(cmd.DisplayName)
	if name == "" {
		name = strings.TrimSpace(cmd.Actor.Name)
	}
	if name == "" {
		name = emailLocalPart(cmd.Actor.Email)
	}

	now := s.clock()
	review := Review{
		ID:        s.newID(),
		UserID:    userID,
		Name:      name,
		Rating:    cmd.Rating,
		Comment:   comment,
		CreatedAt: now,
	}

	updated, err := s.products.Mutate(ctx, productID, func(product *Product) error {
		if _, exists := product.ReviewByUser(userID); exists {
			return ErrReviewDuplicate
		}
		reviews := append(append([]Review(nil), product.Reviews...), review)
		product.ApplyReviews(reviews)
		return nil
	})
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, ReviewEvent{
		Type:       reviewEventCreated,
		ReviewID:   review.ID,
		ProductID:  updated.ID,
		UserID:     userID,
		Rating:     updated.Rating,
		NumReviews: updated.NumReviews,
		OccurredAt: now,
	})
	return updated, nil
}

func (s *reviewService) Remove(ctx context.Context, cmd RemoveReviewCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	reviewID := strings.TrimSpace(cmd.ReviewID)
	if productID == "" || reviewID == "" {
		return Product{}, fmt.Errorf("%w: product and review ids are required", ErrReviewInvalidInput)
	}

	var removed Review
	updated, err := s.products.Mutate(ctx, productID, func(product *Product) error {
		remaining := make([]Review, 0, len(product.Reviews))
		found := false
		for _, review := range product.Reviews {
			if review.ID == reviewID {
				found = true
				removed = review
				continue
			}
			remaining = append(remaining, review)
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrReviewNotFound, reviewID)
		}
		if !cmd.Actor.IsAdmin && removed.UserID != strings.TrimSpace(cmd.Actor.UserID) {
			return ErrReviewNotAuthorized
		}
		product.ApplyReviews(remaining)
		return nil
	})
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, ReviewEvent{
		Type:       reviewEventDeleted,
		ReviewID:   removed.ID,
		ProductID:  updated.ID,
		UserID:     removed.UserID,
		Rating:     updated.Rating,
		NumReviews: updated.NumReviews,
		OccurredAt: s.clock(),
	})
	return updated, nil
}

// ListTop returns the newest reviews across the catalog.
func (s *reviewService) ListTop(ctx context.Context, limit int) ([]ReviewFeedItem, error) {
	switch {
	case limit <= 0:
		limit = defaultTopReviews
	case limit > maxTopReviews:
		limit = maxTopReviews
	}
	feed, err := s.feed(ctx)
	if err != nil {
		return nil, err
	}
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

func (s *reviewService) ListAll(ctx context.Context, actor Actor) ([]ReviewFeedItem, error) {
	if !actor.IsAdmin {
		return nil, ErrReviewNotAuthorized
	}
	return s.feed(ctx)
}

func (s *reviewService) feed(ctx context.Context) ([]ReviewFeedItem, error) {
	products, err := s.products.List(ctx, ProductListFilter{})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	var feed []ReviewFeedItem
	for _, product := range products {
		for _, review := range product.Reviews {
			feed = append(feed, ReviewFeedItem{
				Review:       review,
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductImage: product.Image,
			})
		}
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	return feed, nil
}

func (s *reviewService) publishEvent(ctx context.Context, event ReviewEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReviewEvent(ctx, event); err != nil {
		s.logger(ctx, "review.event.publish.failed", map[string]any{
			"type":    event.Type,
			"product": event.ProductID,
			"error":   err.Error(),
		})
	}
}

func (s *reviewService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrReviewDuplicate) || errors.Is(err, ErrReviewNotFound) || errors.Is(err, ErrReviewNotAuthorized) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return newStoreError(ErrReviewProductNotFound, err)
		case repoErr.IsConflict():
			return newStoreError(ErrReviewConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("review: repository unavailable: %w", err)
		}
	}
	return err
}

func emailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
