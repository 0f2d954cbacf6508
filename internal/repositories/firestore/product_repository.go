package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog entries with their reviews embedded in the product document.
type ProductRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[productDocument]
	clock    func() time.Time
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection)
	return &ProductRepository{
		provider: provider,
		base:     base,
		clock:    time.Now,
	}, nil
}

// Insert writes a new product document. The id must be unused.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	now := r.clock().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Rating, product.NumReviews = domain.RecomputeAggregate(product.Reviews)

	if _, err := ref.Create(ctx, fromDomainProduct(product)); err != nil {
		return domain.Product{}, pfirestore.WrapError("products.insert", err)
	}
	product.ID = id
	return product, nil
}

// Mutate loads the product inside a transaction, applies fn and writes the result
// back. The aggregate fields are always recomputed from the resulting review list.
func (r *ProductRepository) Mutate(ctx context.Context, productID string, fn repositories.ProductMutation) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if fn == nil {
		return domain.Product{}, errors.New("product repository: mutation is required")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	var (
		saved       domain.Product
		callbackErr error
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", id, err)
		}
		product := doc.toDomain(id)

		if err := fn(&product); err != nil {
			callbackErr = err
			return err
		}

		product.ID = id
		product.ApplyReviews(product.Reviews)
		product.UpdatedAt = r.clock().UTC()
		if err := tx.Set(ref, fromDomainProduct(product)); err != nil {
			return err
		}
		saved = product
		return nil
	})
	if callbackErr != nil {
		return domain.Product{}, callbackErr
	}
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.mutate", err)
	}
	return saved, nil
}

// Delete removes the product document. Missing products report a not-found error.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(productID))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("products.delete", err)
	}
	return nil
}

// FindByID loads a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns products matching the category, with a case-insensitive name search
// applied in memory since Firestore has no substring matching.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	category := strings.TrimSpace(filter.Category)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if category != "" && category != domain.CategoryAll {
			q = q.Where("category", "==", category)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		if search != "" && !strings.Contains(strings.ToLower(doc.Data.Name), search) {
			continue
		}
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

// Count returns the number of catalog entries.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("product repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return countDocuments(ctx, client.Collection(productsCollection).Query, "products.count")
}

// UpsertMany replaces the given product documents using a BulkWriter.
func (r *ProductRepository) UpsertMany(ctx context.Context, products []domain.Product) error {
	if r == nil || r.provider == nil {
		return errors.New("product repository not initialised")
	}
	if len(products) == 0 {
		return nil
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	now := r.clock().UTC()
	writer := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(products))
	for _, product := range products {
		id := strings.TrimSpace(product.ID)
		if id == "" {
			writer.End()
			return errors.New("product repository: product id is required for upsert")
		}
		if product.CreatedAt.IsZero() {
			product.CreatedAt = now
		}
		product.UpdatedAt = now
		product.ApplyReviews(product.Reviews)
		job, err := writer.Set(client.Collection(productsCollection).Doc(id), fromDomainProduct(product))
		if err != nil {
			writer.End()
			return pfirestore.WrapError("products.upsertMany", err)
		}
		jobs = append(jobs, job)
	}
	writer.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return pfirestore.WrapError("products.upsertMany", err)
		}
	}
	return nil
}

type productDocument struct {
	Name         string           `firestore:"name"`
	Category     string           `firestore:"category"`
	Price        int64            `firestore:"price"`
	OldPrice     *int64           `firestore:"oldPrice,omitempty"`
	Image        string           `firestore:"image"`
	Description  string           `firestore:"description"`
	CountInStock int              `firestore:"countInStock"`
	IsNewArrival bool             `firestore:"isNewArrival"`
	IsSale       bool             `firestore:"isSale"`
	Reviews      []reviewDocument `firestore:"reviews"`
	Rating       float64          `firestore:"rating"`
	NumReviews   int              `firestore:"numReviews"`
	CreatedAt    time.Time        `firestore:"createdAt"`
	UpdatedAt    time.Time        `firestore:"updatedAt"`
}

type reviewDocument struct {
	ID        string    `firestore:"id"`
	UserID    string    `firestore:"userId"`
	Name      string    `firestore:"name"`
	Rating    int       `firestore:"rating"`
	Comment   string    `firestore:"comment"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	reviews := make([]domain.Review, 0, len(d.Reviews))
	for _, review := range d.Reviews {
		reviews = append(reviews, domain.Review{
			ID:        review.ID,
			UserID:    review.UserID,
			Name:      review.Name,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt,
		})
	}
	return domain.Product{
		ID:           id,
		Name:         d.Name,
		Category:     d.Category,
		Price:        d.Price,
		OldPrice:     cloneInt64(d.OldPrice),
		Image:        d.Image,
		Description:  d.Description,
		CountInStock: d.CountInStock,
		IsNewArrival: d.IsNewArrival,
		IsSale:       d.IsSale,
		Reviews:      reviews,
		Rating:       d.Rating,
		NumReviews:   d.NumReviews,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func fromDomainProduct(product domain.Product) productDocument {
	reviews := make([]reviewDocument, 0, len(product.Reviews))
	for _, review := range product.Reviews {
		reviews = append(reviews, reviewDocument{
			ID:        review.ID,
			UserID:    review.UserID,
			Name:      review.Name,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt.UTC(),
		})
	}
	return productDocument{
		Name:         product.Name,
		Category:     product.Category,
		Price:        product.Price,
		OldPrice:     cloneInt64(product.OldPrice),
		Image:        product.Image,
		Description:  product.Description,
		CountInStock: product.CountInStock,
		IsNewArrival: product.IsNewArrival,
		IsSale:       product.IsSale,
		Reviews:      reviews,
		Rating:       product.Rating,
		NumReviews:   product.NumReviews,
		CreatedAt:    product.CreatedAt.UTC(),
		UpdatedAt:    product.UpdatedAt.UTC(),
	}
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
