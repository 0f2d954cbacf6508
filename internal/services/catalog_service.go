package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abhirana780/medical-backend/internal/platform/textutil"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const productIDPrefix = "prd_"

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog mutation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogProductNotFound indicates the product does not exist.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
	// ErrCatalogNotAuthorized indicates the actor may not maintain the catalog.
	ErrCatalogNotAuthorized = errors.New("catalog service: not authorized")
	// ErrCatalogConflict indicates the product changed concurrently.
	ErrCatalogConflict = errors.New("catalog service: conflict")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Sanitizer   func(string) string
}

type catalogService struct {
	repo     repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	sanitize func(string) string
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return productIDPrefix + ulid.Make().String() }
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		sanitize = textutil.PlainText
	}
	return &catalogService{
		repo:     deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		sanitize: sanitize,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error) {
	products, err := s.repo.List(ctx, ProductListFilter{
		Category: strings.TrimSpace(filter.Category),
		Search:   strings.TrimSpace(filter.Search),
	})
	if err != nil {
		return nil, mapCatalogRepositoryError(err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, mapCatalogRepositoryError(err)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	if !cmd.Actor.IsAdmin {
		return Product{}, ErrCatalogNotAuthorized
	}
	product := Product{
		ID:           s.newID(),
		Name:         strings.TrimSpace(cmd.Name),
		Category:     strings.TrimSpace(cmd.Category),
		Price:        cmd.Price,
		OldPrice:     cmd.OldPrice,
		Image:        strings.TrimSpace(cmd.Image),
		Description:  s.sanitize(cmd.Description),
		CountInStock: cmd.CountInStock,
		IsNewArrival: cmd.IsNewArrival,
		IsSale:       cmd.IsSale,
		CreatedAt:    s.clock(),
	}
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	saved, err := s.repo.Insert(ctx, product)
	if err != nil {
		return Product{}, mapCatalogRepositoryError(err)
	}
	return saved, nil
}

// UpdateProduct patches the admin fields. Reviews and the rating aggregate are never touched here.
func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	if !cmd.Actor.IsAdmin {
		return Product{}, ErrCatalogNotAuthorized
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	updated, err := s.repo.Mutate(ctx, productID, func(product *Product) error {
		setString(&product.Name, cmd.Name)
		setString(&product.Category, cmd.Category)
		setString(&product.Image, cmd.Image)
		if cmd.Description != nil {
			if desc := s.sanitize(*cmd.Description); desc != "" {
				product.Description = desc
			}
		}
		if cmd.Price != nil {
			product.Price = *cmd.Price
		}
		if cmd.OldPrice != nil {
			oldPrice := *cmd.OldPrice
			product.OldPrice = &oldPrice
		}
		if cmd.CountInStock != nil {
			product.CountInStock = *cmd.CountInStock
		}
		if cmd.IsNewArrival != nil {
			product.IsNewArrival = *cmd.IsNewArrival
		}
		if cmd.IsSale != nil {
			product.IsSale = *cmd.IsSale
		}
		return validateProduct(*product)
	})
	if err != nil {
		return Product{}, mapCatalogRepositoryError(err)
	}
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error {
	if !cmd.Actor.IsAdmin {
		return ErrCatalogNotAuthorized
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return mapCatalogRepositoryError(err)
	}
	return nil
}

func validateProduct(product Product) error {
	switch {
	case product.Name == "":
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	case product.Category == "":
		return fmt.Errorf("%w: category is required", ErrCatalogInvalidInput)
	case product.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	case product.OldPrice != nil && *product.OldPrice < 0:
		return fmt.Errorf("%w: old price must not be negative", ErrCatalogInvalidInput)
	case product.CountInStock < 0:
		return fmt.Errorf("%w: count in stock must not be negative", ErrCatalogInvalidInput)
	}
	return nil
}

// setString overwrites dst only with a non-blank value.
func setString(dst *string, value *string) {
	if value == nil {
		return
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		*dst = trimmed
	}
}

func mapCatalogRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCatalogInvalidInput) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return newStoreError(ErrCatalogProductNotFound, err)
		case repoErr.IsConflict():
			return newStoreError(ErrCatalogConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("catalog service: repository unavailable: %w", err)
		}
	}
	return err
}
