package tracker

import (
	"time"

	"broadcast-coach/cache"
	"broadcast-coach/model"
)

const (
	day7Window  = 7 * 24 * time.Hour
	day30Window = 30 * 24 * time.Hour
)

// updateTokenStats incrementally folds one amount-carrying event into a
// user's aggregate. The 7/30-day buckets are judged against wall-clock now,
// not the import time, so imported spend ages out of the windows naturally.
// Callers hold the lock.
func (t *Tracker) updateTokenStats(user *model.UserRecord, event *model.Event) {
	amount := *event.Data.Amount
	now := t.now()

	user.TokenStats.TotalSpent += amount
	user.TokenStats.LastUpdated = &now

	category := event.SpendCategory()
	if !event.Timestamp.Before(now.Add(-day7Window)) {
		user.TokenStats.TimePeriods.Day7.Add(category, amount)
	}
	if !event.Timestamp.Before(now.Add(-day30Window)) {
		user.TokenStats.TimePeriods.Day30.Add(category, amount)
	}
}

// RecalculateTotals rebuilds a user's token statistics from the full event
// history. Summation is commutative, so the result matches what the
// incremental updates would have produced for the same reference now.
func (t *Tracker) RecalculateTotals(username string) bool {
	defer t.recoverOp("RecalculateTotals")
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[username]
	if !ok {
		return false
	}

	user.TokenStats = model.TokenStats{}
	for i := range user.EventHistory {
		event := &user.EventHistory[i]
		if event.HasAmount() {
			t.updateTokenStats(user, event)
		}
	}
	t.mutated()
	return true
}

// TotalSpent returns the lifetime token spend for a user.
func (t *Tracker) TotalSpent(username string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[username]
	if !ok {
		return 0
	}
	return user.TokenStats.TotalSpent
}

// SpentInPeriod returns the spend in one category over the last N days. The
// canonical 7- and 30-day windows come from the precomputed buckets; any
// other window falls back to a full scan of the event history. The scan is
// O(history) and its result is memoized in the spend cache until the next
// mutation.
func (t *Tracker) SpentInPeriod(username string, days int, category string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[username]
	if !ok {
		return 0
	}

	switch days {
	case 7:
		return user.TokenStats.TimePeriods.Day7.Get(category)
	case 30:
		return user.TokenStats.TimePeriods.Day30.Get(category)
	}

	key := cache.Key(t.gen, username, days, category)
	if total, found := t.spend.Get(key); found {
		return total
	}

	cutoff := t.now().Add(-time.Duration(days) * 24 * time.Hour)
	var total float64
	for i := range user.EventHistory {
		event := &user.EventHistory[i]
		if !event.HasAmount() || event.Timestamp.Before(cutoff) {
			continue
		}
		if event.SpendCategory() == category {
			total += *event.Data.Amount
		}
	}

	t.spend.Set(key, total)
	return total
}
