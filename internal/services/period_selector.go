package services

import (
	"sync"

	"thuchi/internal/core"
)

// PeriodSelector holds the month the user is looking at and notifies
// subscribers when it changes. Delivery is latest-wins: a subscriber that
// lags only sees the most recent period.
type PeriodSelector struct {
	mu      sync.Mutex
	current core.Period
	subs    map[int]chan core.Period
	nextID  int
}

// NewPeriodSelector starts at the current calendar month.
func NewPeriodSelector() *PeriodSelector {
	return NewPeriodSelectorAt(core.CurrentPeriod())
}

// NewPeriodSelectorAt starts at the given period.
func NewPeriodSelectorAt(p core.Period) *PeriodSelector {
	return &PeriodSelector{
		current: p,
		subs:    make(map[int]chan core.Period),
	}
}

// Current returns the selected period.
func (ps *PeriodSelector) Current() core.Period {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.current
}

// StepPrev moves one month back, rolling the year at January.
func (ps *PeriodSelector) StepPrev() core.Period {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.current = ps.current.Prev()
	ps.publishLocked()
	return ps.current
}

// StepNext moves one month forward, rolling the year at December.
func (ps *PeriodSelector) StepNext() core.Period {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.current = ps.current.Next()
	ps.publishLocked()
	return ps.current
}

// Set jumps to an arbitrary period.
func (ps *PeriodSelector) Set(p core.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p == ps.current {
		return nil
	}
	ps.current = p
	ps.publishLocked()
	return nil
}

// Subscribe returns a channel carrying period changes and a cancel func.
// The channel receives the current period immediately. After cancel returns
// no further value is delivered.
func (ps *PeriodSelector) Subscribe() (<-chan core.Period, func()) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	id := ps.nextID
	ps.nextID++

	ch := make(chan core.Period, 1)
	ch <- ps.current
	ps.subs[id] = ch

	cancel := func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		if sub, ok := ps.subs[id]; ok {
			delete(ps.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

func (ps *PeriodSelector) publishLocked() {
	for _, ch := range ps.subs {
		select {
		case ch <- ps.current:
		default:
			// Drop the stale period so the latest one fits.
			select {
			case <-ch:
			default:
			}
			ch <- ps.current
		}
	}
}
