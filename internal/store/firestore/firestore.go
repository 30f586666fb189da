// Package firestore implements the transaction store on Google Cloud
// Firestore, the remote document database the mobile client writes to.
// Layout matches the client: a `users` collection with a `transactions`
// sub-collection per user document.
package firestore

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"thuchi/internal/core"
	"thuchi/internal/store"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
)

type Store struct {
	client *firestore.Client
}

var _ store.Store = (*Store)(nil)

// New connects to Firestore. credentialsFile may be empty, in which case
// application default credentials are used.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) transactions(userID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(transactionsCollection)
}

// Append implements store.TransactionWriter
func (s *Store) Append(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	tx = tx.Normalized()
	if err := tx.Validate(); err != nil {
		return "", err
	}

	ref, _, err := s.transactions(userID).Add(ctx, encodeTransaction(tx))
	if err != nil {
		return "", fmt.Errorf("add transaction document: %w", err)
	}

	slog.InfoContext(ctx, "Transaction written to Firestore",
		"transaction_id", ref.ID,
		"user_id", userID,
		"transaction_type", string(tx.Type))
	return ref.ID, nil
}

// Put writes the transaction under a fixed document id so the local buffer
// id and the remote document id stay equal. The sync worker mirrors through
// this instead of Append.
func (s *Store) Put(ctx context.Context, userID string, tx core.Transaction) error {
	tx = tx.Normalized()
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == "" {
		return fmt.Errorf("put transaction: missing id")
	}

	if _, err := s.transactions(userID).Doc(tx.ID).Set(ctx, encodeTransaction(tx)); err != nil {
		return fmt.Errorf("set transaction document: %w", err)
	}
	return nil
}

// Delete implements store.TransactionDeleter
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	doc := s.transactions(userID).Doc(id)
	if _, err := doc.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		return fmt.Errorf("get transaction document: %w", err)
	}
	if _, err := doc.Delete(ctx); err != nil {
		return fmt.Errorf("delete transaction document: %w", err)
	}
	return nil
}

// ListAll implements store.TransactionLister
func (s *Store) ListAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	iter := s.transactions(userID).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []core.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate transaction documents: %w", err)
		}
		out = append(out, decodeSnapshotDoc(doc))
	}
	return out, nil
}

// Watch implements store.TransactionWatcher using Firestore query
// snapshots: every change to the sub-collection yields a fresh full list.
func (s *Store) Watch(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	snaps := s.transactions(userID).OrderBy("createdAt", firestore.Desc).Snapshots(ctx)

	ch := make(chan []core.Transaction, 1)
	go func() {
		defer close(ch)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					slog.ErrorContext(ctx, "Firestore snapshot stream failed",
						"user_id", userID, "error", err)
				}
				return
			}
			list, err := decodeQuerySnapshot(snap)
			if err != nil {
				slog.ErrorContext(ctx, "Decode snapshot failed", "user_id", userID, "error", err)
				continue
			}
			// Latest-wins delivery, same contract as the other backends.
			select {
			case ch <- list:
			default:
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- list:
				default:
				}
			}
		}
	}()

	return ch, cancel, nil
}

func decodeQuerySnapshot(snap *firestore.QuerySnapshot) ([]core.Transaction, error) {
	var out []core.Transaction
	for {
		doc, err := snap.Documents.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, decodeSnapshotDoc(doc))
	}
}

// GetProfile implements store.ProfileReader
func (s *Store) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	doc, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return core.Profile{}, store.ErrNotFound
		}
		return core.Profile{}, fmt.Errorf("get user document: %w", err)
	}

	var pd profileDoc
	if err := doc.DataTo(&pd); err != nil {
		return core.Profile{}, fmt.Errorf("decode user document: %w", err)
	}
	return core.Profile{
		ID:        doc.Ref.ID,
		Name:      pd.Name,
		Email:     pd.Email,
		CreatedAt: pd.CreatedAt,
	}, nil
}

// PutProfile implements store.ProfileWriter
func (s *Store) PutProfile(ctx context.Context, p core.Profile) error {
	_, err := s.client.Collection(usersCollection).Doc(p.ID).Set(ctx, profileDoc{
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("set user document: %w", err)
	}
	return nil
}

// UpdateName implements store.ProfileWriter
func (s *Store) UpdateName(ctx context.Context, userID, name string) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "name", Value: name},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}
