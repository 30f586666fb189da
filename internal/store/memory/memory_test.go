package memory

import (
	"context"
	"testing"
	"time"

	"thuchi/internal/core"
	"thuchi/internal/store"
)

func sample(cents int64) core.Transaction {
	return core.Transaction{
		Type:     core.Expense,
		Amount:   core.Money{Cents: cents},
		Category: core.Category{ID: "food", Name: "Food", Icon: "restaurant-outline"},
		Date:     time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Append(ctx, "u1", sample(1000))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatal("empty id assigned")
	}

	txs, err := s.ListAll(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != id {
		t.Fatalf("list = %+v", txs)
	}
	if txs[0].CreatedAt.IsZero() {
		t.Fatal("CreatedAt not assigned")
	}

	// Other users see nothing.
	other, _ := s.ListAll(ctx, "u2")
	if len(other) != 0 {
		t.Fatalf("user isolation broken: %+v", other)
	}
}

func TestAppendNormalizesLegacySign(t *testing.T) {
	s := New()
	tx := sample(0)
	tx.Amount.Cents = -1234 // legacy negated expense

	id, err := s.Append(context.Background(), "u1", tx)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	txs, _ := s.ListAll(context.Background(), "u1")
	if txs[0].ID != id || txs[0].Amount.Cents != 1234 {
		t.Fatalf("stored amount = %d, want 1234", txs[0].Amount.Cents)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := sample(1000)
	bad.Date = time.Time{}
	if _, err := s.Append(context.Background(), "u1", bad); err != core.ErrMissingDate {
		t.Fatalf("err = %v, want ErrMissingDate", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Append(ctx, "u1", sample(1000))

	if err := s.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txs, _ := s.ListAll(ctx, "u1")
	if len(txs) != 0 {
		t.Fatalf("transaction not removed: %+v", txs)
	}

	if err := s.Delete(ctx, "u1", "missing"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWatchDeliversSnapshots(t *testing.T) {
	s := New()
	ctx := context.Background()

	ch, cancel, err := s.Watch(ctx, "u1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	// Initial snapshot is empty.
	if snap := <-ch; len(snap) != 0 {
		t.Fatalf("initial snapshot = %+v", snap)
	}

	id, _ := s.Append(ctx, "u1", sample(1000))
	snap := <-ch
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("snapshot after append = %+v", snap)
	}

	s.Delete(ctx, "u1", id)
	snap = <-ch
	if len(snap) != 0 {
		t.Fatalf("snapshot after delete = %+v", snap)
	}
}

func TestWatchLatestSnapshotWins(t *testing.T) {
	s := New()
	ctx := context.Background()

	ch, cancel, _ := s.Watch(ctx, "u1")
	defer cancel()
	<-ch // drain initial snapshot

	// Two mutations before the consumer reads: the stale snapshot is
	// displaced and only the latest is pending.
	s.Append(ctx, "u1", sample(100))
	s.Append(ctx, "u1", sample(200))

	snap := <-ch
	if len(snap) != 2 {
		t.Fatalf("pending snapshot has %d entries, want 2 (latest)", len(snap))
	}
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	s := New()
	ctx := context.Background()

	ch, cancel, _ := s.Watch(ctx, "u1")
	<-ch
	cancel()

	// Channel is closed, and a mutation afterwards does not panic or
	// deliver.
	s.Append(ctx, "u1", sample(100))
	if snap, ok := <-ch; ok {
		t.Fatalf("received %+v after cancel", snap)
	}

	// Cancel is idempotent.
	cancel()
}

func TestProfileRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetProfile(ctx, "u1"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	p := core.Profile{ID: "u1", Name: "Lan", Email: "lan@example.com"}
	if err := s.PutProfile(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Lan" || got.CreatedAt.IsZero() {
		t.Fatalf("profile = %+v", got)
	}

	if err := s.UpdateName(ctx, "u1", "Linh"); err != nil {
		t.Fatalf("update name: %v", err)
	}
	got, _ = s.GetProfile(ctx, "u1")
	if got.Name != "Linh" {
		t.Fatalf("name = %s", got.Name)
	}

	if err := s.UpdateName(ctx, "nobody", "x"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
