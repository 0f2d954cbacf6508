// Package bootstrap seeds the catalog of a fresh deployment.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domain "github.com/abhirana780/medical-backend/internal/domain"
)

// DefaultMinProducts is the catalog size below which Run seeds.
const DefaultMinProducts = 10

// ProductStore is the part of the product repository the seeder writes through.
type ProductStore interface {
	Count(ctx context.Context) (int64, error)
	UpsertMany(ctx context.Context, products []domain.Product) error
}

// ObjectReader loads the optional catalog object.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// Deps configures a Seeder. Objects, Bucket and Object are optional; without them the
// built-in catalog is used.
type Deps struct {
	Products    ProductStore
	Objects     ObjectReader
	Bucket      string
	Object      string
	MinProducts int
	Logger      *zap.Logger
}

// Result reports what a Run did.
type Result struct {
	Existing int64  `json:"existing"`
	Seeded   int    `json:"seeded"`
	Source   string `json:"source,omitempty"`
}

// Seeder fills the catalog when it holds fewer than MinProducts products. Seeded products
// have deterministic ids, so repeated runs overwrite the same documents rather than
// duplicating them.
type Seeder struct {
	products ProductStore
	objects  ObjectReader
	bucket   string
	object   string
	min      int
	logger   *zap.Logger
}

func NewSeeder(deps Deps) (*Seeder, error) {
	if deps.Products == nil {
		return nil, errors.New("bootstrap: product store is required")
	}
	minProducts := deps.MinProducts
	if minProducts <= 0 {
		minProducts = DefaultMinProducts
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		products: deps.Products,
		objects:  deps.Objects,
		bucket:   strings.TrimSpace(deps.Bucket),
		object:   strings.TrimSpace(deps.Object),
		min:      minProducts,
		logger:   logger,
	}, nil
}

// Run seeds the catalog if needed.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	count, err := s.products.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap: count products: %w", err)
	}
	result := Result{Existing: count}
	if count >= int64(s.min) {
		s.logger.Debug("bootstrap: catalog already populated", zap.Int64("products", count))
		return result, nil
	}

	entries, source, err := s.catalog(ctx)
	if err != nil {
		return result, err
	}
	products := make([]domain.Product, 0, len(entries))
	for _, entry := range entries {
		product := entry.toProduct()
		if product.Name == "" || product.Price < 0 {
			return result, fmt.Errorf("bootstrap: invalid catalog entry %q", entry.Name)
		}
		products = append(products, product)
	}
	if err := s.products.UpsertMany(ctx, products); err != nil {
		return result, fmt.Errorf("bootstrap: upsert products: %w", err)
	}

	result.Seeded = len(products)
	result.Source = source
	s.logger.Info("bootstrap: catalog seeded",
		zap.Int64("existing", count),
		zap.Int("seeded", result.Seeded),
		zap.String("source", source),
	)
	return result, nil
}

func (s *Seeder) catalog(ctx context.Context) ([]catalogEntry, string, error) {
	if s.objects == nil || s.bucket == "" || s.object == "" {
		return defaultCatalog, defaultSeedSource, nil
	}
	data, err := s.objects.ReadObject(ctx, s.bucket, s.object)
	if err != nil {
		return nil, "", fmt.Errorf("bootstrap: read catalog object: %w", err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, "", fmt.Errorf("bootstrap: decode catalog object: %w", err)
	}
	if len(entries) == 0 {
		return nil, "", errors.New("bootstrap: catalog object is empty")
	}
	return entries, fmt.Sprintf("gs://%s/%s", s.bucket, s.object), nil
}
