package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection     = "idempotency_keys"
	defaultTxAttempts     = 5
	defaultCleanupBatchSz = 100
)

type FirestoreOption func(*FirestoreStore)

func WithCollection(name string) FirestoreOption {
	return func(s *FirestoreStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithMaxAttempts bounds transaction retries under contention on a single key.
func WithMaxAttempts(attempts int) FirestoreOption {
	return func(s *FirestoreStore) {
		if attempts > 0 {
			s.attempts = attempts
		}
	}
}

// FirestoreStore keeps records in the storefront's own database, one document per key.
// The expires_at field doubles as a TTL policy field when one is configured.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	attempts   int
}

func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	s := &FirestoreStore{client: client, collection: defaultCollection, attempts: defaultTxAttempts}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FirestoreStore) ref(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(documentID(key))
}

func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	ref := s.ref(key)
	var res Reservation
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := readRecord(tx, ref)
		if err != nil {
			return err
		}
		var write bool
		res, write, err = claim(current, key, fingerprint, now.UTC(), ttl)
		if err != nil || !write {
			return err
		}
		return tx.Set(ref, res.Record)
	}, firestore.MaxAttempts(s.attempts))
	return res, err
}

func (s *FirestoreStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	ref := s.ref(key)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := readRecord(tx, ref)
		if err != nil {
			return err
		}
		record, err := settle(current, key, fingerprint, resp, now.UTC(), ttl)
		if err != nil {
			return err
		}
		return tx.Set(ref, record)
	}, firestore.MaxAttempts(s.attempts))
}

func (s *FirestoreStore) Release(ctx context.Context, key, _ string) error {
	if _, err := s.ref(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

// CleanupExpired removes at most limit lapsed documents with one batched write.
func (s *FirestoreStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultCleanupBatchSz
	}
	snaps, err := s.client.Collection(s.collection).
		Where("expires_at", "<=", now.UTC()).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil || len(snaps) == 0 {
		return 0, err
	}

	batch := s.client.Batch()
	for _, snap := range snaps {
		batch.Delete(snap.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func readRecord(tx *firestore.Transaction, ref *firestore.DocumentRef) (*Record, error) {
	snap, err := tx.Get(ref)
	switch {
	case status.Code(err) == codes.NotFound:
		return nil, nil
	case err != nil:
		return nil, err
	}
	var record Record
	if err := snap.DataTo(&record); err != nil {
		return nil, err
	}
	return &record, nil
}
