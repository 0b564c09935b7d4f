package tracker

import (
	"testing"
	"time"

	"broadcast-coach/model"
)

func TestTokenStatsBuckets(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	add := func(typ model.EventType, amount float64, age time.Duration) {
		tr.AddEvent("alice", typ, model.EventData{
			Amount:    model.Float(amount),
			Timestamp: model.Time(now.Add(-age)),
		})
	}

	add(model.EventTip, 10, 2*24*time.Hour)             // day7 + day30 tips
	add(model.EventPrivateShow, 40, 3*24*time.Hour)     // day7 + day30 privates
	add(model.EventMediaPurchase, 25, 20*24*time.Hour)  // day30 media only
	add(model.EventTip, 100, 45*24*time.Hour)           // total only
	add(model.EventPrivateMessage, 5, 6*24*time.Hour)   // privates bucket

	user := tr.GetUser("alice")
	stats := user.TokenStats

	if stats.TotalSpent != 180 {
		t.Errorf("TotalSpent = %v, want 180", stats.TotalSpent)
	}
	if stats.TimePeriods.Day7.Tips != 10 {
		t.Errorf("day7 tips = %v, want 10", stats.TimePeriods.Day7.Tips)
	}
	if stats.TimePeriods.Day7.Privates != 45 {
		t.Errorf("day7 privates = %v, want 45", stats.TimePeriods.Day7.Privates)
	}
	if stats.TimePeriods.Day7.Media != 0 {
		t.Errorf("day7 media = %v, want 0", stats.TimePeriods.Day7.Media)
	}
	if stats.TimePeriods.Day30.Media != 25 {
		t.Errorf("day30 media = %v, want 25", stats.TimePeriods.Day30.Media)
	}
	if stats.TimePeriods.Day30.Tips != 10 {
		t.Errorf("day30 tips = %v, want 10 (45-day-old tip aged out)", stats.TimePeriods.Day30.Tips)
	}
	if stats.LastUpdated == nil {
		t.Error("LastUpdated should be set")
	}
}

func TestRecalculateTotalsMatchesIncremental(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	amounts := []struct {
		typ    model.EventType
		amount float64
		age    time.Duration
	}{
		{model.EventTip, 10, time.Hour},
		{model.EventPrivateShow, 60, 5 * 24 * time.Hour},
		{model.EventMediaPurchase, 30, 10 * 24 * time.Hour},
		{model.EventTip, 7, 40 * 24 * time.Hour},
	}
	for _, a := range amounts {
		tr.AddEvent("bob", a.typ, model.EventData{
			Amount:    model.Float(a.amount),
			Timestamp: model.Time(now.Add(-a.age)),
		})
	}

	incremental := tr.GetUser("bob").TokenStats

	if !tr.RecalculateTotals("bob") {
		t.Fatal("RecalculateTotals() = false, want true")
	}
	recalculated := tr.GetUser("bob").TokenStats

	if incremental.TotalSpent != recalculated.TotalSpent {
		t.Errorf("TotalSpent: incremental %v != recalculated %v", incremental.TotalSpent, recalculated.TotalSpent)
	}
	if incremental.TimePeriods != recalculated.TimePeriods {
		t.Errorf("TimePeriods: incremental %+v != recalculated %+v", incremental.TimePeriods, recalculated.TimePeriods)
	}
}

func TestRecalculateTotalsUnknownUser(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	if tr.RecalculateTotals("nobody") {
		t.Error("RecalculateTotals() = true for unknown user, want false")
	}
}

func TestTotalSpent(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	tr.RecordUserTip("carol", 15, "")
	tr.RecordUserTip("carol", 5, "")

	if got := tr.TotalSpent("carol"); got != 20 {
		t.Errorf("TotalSpent() = %v, want 20", got)
	}
	if got := tr.TotalSpent("nobody"); got != 0 {
		t.Errorf("TotalSpent() = %v for unknown user, want 0", got)
	}
}

func TestSpentInPeriodCanonicalWindows(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	tr.AddEvent("dave", model.EventTip, model.EventData{
		Amount:    model.Float(10),
		Timestamp: model.Time(now.Add(-24 * time.Hour)),
	})
	tr.AddEvent("dave", model.EventPrivateShow, model.EventData{
		Amount:    model.Float(50),
		Timestamp: model.Time(now.Add(-15 * 24 * time.Hour)),
	})

	if got := tr.SpentInPeriod("dave", 7, model.CategoryTips); got != 10 {
		t.Errorf("7-day tips = %v, want 10", got)
	}
	if got := tr.SpentInPeriod("dave", 7, model.CategoryPrivates); got != 0 {
		t.Errorf("7-day privates = %v, want 0", got)
	}
	if got := tr.SpentInPeriod("dave", 30, model.CategoryPrivates); got != 50 {
		t.Errorf("30-day privates = %v, want 50", got)
	}
}

func TestSpentInPeriodArbitraryWindowScansHistory(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	tr.AddEvent("erin", model.EventTip, model.EventData{
		Amount:    model.Float(10),
		Timestamp: model.Time(now.Add(-10 * 24 * time.Hour)),
	})
	tr.AddEvent("erin", model.EventTip, model.EventData{
		Amount:    model.Float(20),
		Timestamp: model.Time(now.Add(-2 * 24 * time.Hour)),
	})
	tr.AddEvent("erin", model.EventMediaPurchase, model.EventData{
		Amount:    model.Float(40),
		Timestamp: model.Time(now.Add(-2 * 24 * time.Hour)),
	})

	if got := tr.SpentInPeriod("erin", 14, model.CategoryTips); got != 30 {
		t.Errorf("14-day tips = %v, want 30", got)
	}
	if got := tr.SpentInPeriod("erin", 5, model.CategoryTips); got != 20 {
		t.Errorf("5-day tips = %v, want 20", got)
	}
	if got := tr.SpentInPeriod("erin", 14, model.CategoryMedia); got != 40 {
		t.Errorf("14-day media = %v, want 40", got)
	}
	if got := tr.SpentInPeriod("nobody", 14, model.CategoryTips); got != 0 {
		t.Errorf("unknown user spend = %v, want 0", got)
	}
}
