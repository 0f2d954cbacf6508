//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pconfig "github.com/abhirana780/medical-backend/internal/platform/config"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
)

type counter struct {
	Name  string `firestore:"name"`
	Count int    `firestore:"count"`
}

// Run with FIRESTORE_EMULATOR_HOST pointing at `gcloud emulators firestore start`.
func TestProviderAgainstEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "medical-test", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	repo := pfirestore.NewBaseRepository[counter](provider, "counters")
	ref, err := repo.DocumentRef(ctx, "stock")
	if err != nil {
		t.Fatalf("document ref: %v", err)
	}
	if _, err := ref.Set(ctx, counter{Name: "stock", Count: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var c counter
		if err := snap.DataTo(&c); err != nil {
			return err
		}
		c.Count++
		return tx.Set(ref, c)
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}

	doc, err := repo.Get(ctx, "stock")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data.Count != 2 || doc.UpdateTime.IsZero() {
		t.Fatalf("unexpected document %+v", doc)
	}

	docs, err := repo.Query(ctx, func(q firestore.Query) firestore.Query { return q.Where("name", "==", "stock") })
	if err != nil || len(docs) != 1 {
		t.Fatalf("query: %v (%d docs)", err, len(docs))
	}

	_, err = repo.Get(ctx, "missing")
	var repoErr *pfirestore.Error
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}

	sentinel := errors.New("out of stock")
	if err := provider.RunTransaction(ctx, func(context.Context, *firestore.Transaction) error {
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected transaction body error to pass through, got %v", err)
	}
}
