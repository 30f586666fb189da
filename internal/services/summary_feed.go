package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"thuchi/internal/core"
	"thuchi/internal/store"
)

// SummaryFeed recomputes a user's monthly summary whenever their transaction
// list or the selected period changes, and pushes the result to subscribers.
type SummaryFeed struct {
	watcher  store.TransactionWatcher
	selector *PeriodSelector
}

func NewSummaryFeed(watcher store.TransactionWatcher, selector *PeriodSelector) *SummaryFeed {
	return &SummaryFeed{
		watcher:  watcher,
		selector: selector,
	}
}

// Subscribe starts a live summary stream for the user. The channel carries a
// fresh summary after every transaction snapshot or period change, latest-wins.
// The cancel func stops the stream; the channel is closed once the feed shuts
// down.
func (f *SummaryFeed) Subscribe(ctx context.Context, userID string) (<-chan core.Summary, func(), error) {
	snapshots, cancelWatch, err := f.watcher.Watch(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("watch transactions: %w", err)
	}

	periods, cancelPeriods := f.selector.Subscribe()

	out := make(chan core.Summary, 1)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer close(out)

		var (
			txs     []core.Transaction
			haveTxs bool
		)
		period := f.selector.Current()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case snapshot, ok := <-snapshots:
				if !ok {
					return
				}
				txs = snapshot
				haveTxs = true
			case p, ok := <-periods:
				if !ok {
					return
				}
				period = p
			}

			if !haveTxs {
				continue
			}

			summary := core.Aggregate(txs, period)
			if len(summary.Skipped) > 0 {
				slog.WarnContext(ctx, "Skipped malformed transactions in summary feed",
					"user_id", userID,
					"period", period.String(),
					"skipped", len(summary.Skipped))
			}

			// Latest-wins delivery, same contract as the store watchers.
			select {
			case out <- summary:
			default:
				select {
				case <-out:
				default:
				}
				out <- summary
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelWatch()
			cancelPeriods()
			<-stopped
		})
	}

	return out, cancel, nil
}
