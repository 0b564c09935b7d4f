package model

import "time"

// Spend categories for the token statistics buckets.
const (
	CategoryTips     = "tips"
	CategoryPrivates = "privates"
	CategoryMedia    = "media"
)

// DefaultMaxHistory bounds a user's event history when no configured value
// is carried on the record.
const DefaultMaxHistory = 1000

// PeriodBuckets breaks a rolling period's spend down by category.
type PeriodBuckets struct {
	Tips     float64 `json:"tips"`
	Privates float64 `json:"privates"`
	Media    float64 `json:"media"`
}

// Add accumulates amount into the bucket named by category.
func (p *PeriodBuckets) Add(category string, amount float64) {
	switch category {
	case CategoryPrivates:
		p.Privates += amount
	case CategoryMedia:
		p.Media += amount
	default:
		p.Tips += amount
	}
}

// Get returns the bucket named by category.
func (p *PeriodBuckets) Get(category string) float64 {
	switch category {
	case CategoryPrivates:
		return p.Privates
	case CategoryMedia:
		return p.Media
	default:
		return p.Tips
	}
}

// TimePeriods holds the precomputed rolling 7- and 30-day breakdowns.
type TimePeriods struct {
	Day7  PeriodBuckets `json:"day7"`
	Day30 PeriodBuckets `json:"day30"`
}

// TokenStats is the derived spend aggregate for one user. It is always
// recomputable from the event history; the period windows are evaluated
// relative to wall-clock "now", so old imported spend ages out of them over
// real time.
type TokenStats struct {
	TotalSpent  float64     `json:"totalSpent"`
	TimePeriods TimePeriods `json:"timePeriods"`
	LastUpdated *time.Time  `json:"lastUpdated"`
}

// UserRecord tracks one distinct non-anonymous username. The event history
// is the source of truth for activity and spend; the flat tip fields are a
// legacy aggregate kept in parallel for older consumers.
type UserRecord struct {
	Username                  string     `json:"username"`
	FirstSeenDate             *time.Time `json:"firstSeenDate"`
	LastSeenDate              *time.Time `json:"lastSeenDate"`
	IsOnline                  bool       `json:"isOnline"`
	MostRecentlySaidThings    []string   `json:"mostRecentlySaidThings"`
	AmountTippedTotal         float64    `json:"amountTippedTotal"`
	MostRecentTipAmount       float64    `json:"mostRecentTipAmount"`
	MostRecentTipDatetime     *time.Time `json:"mostRecentTipDatetime"`
	EventHistory              []Event    `json:"eventHistory"`
	TokenStats                TokenStats `json:"tokenStats"`
	MaxHistory                int        `json:"maxHistory"`
	RealName                  *string    `json:"realName"`
	RealLocation              *string    `json:"realLocation"`
	Preferences               string     `json:"preferences"`
	Interests                 string     `json:"interests"`
	NumberOfPrivateShowsTaken int        `json:"numberOfPrivateShowsTaken"`
}

// DefaultUser returns the canonical empty record for a username. First/last
// seen stay nil until the first real event arrives.
func DefaultUser(username string) *UserRecord {
	return &UserRecord{
		Username:               username,
		MostRecentlySaidThings: []string{},
		EventHistory:           []Event{},
		MaxHistory:             DefaultMaxHistory,
	}
}

// UserUpdate is a partial update applied onto a UserRecord; nil fields are
// left untouched. RecentMessage and TipAmount are compatibility
// pseudo-fields: the first is pushed onto the bounded chat cache, the second
// feeds the legacy tip aggregates.
type UserUpdate struct {
	RecentMessage             *string  `json:"recentMessage,omitempty"`
	TipAmount                 *float64 `json:"tipAmount,omitempty"`
	IsOnline                  *bool    `json:"isOnline,omitempty"`
	RealName                  *string  `json:"realName,omitempty"`
	RealLocation              *string  `json:"realLocation,omitempty"`
	Preferences               *string  `json:"preferences,omitempty"`
	Interests                 *string  `json:"interests,omitempty"`
	NumberOfPrivateShowsTaken *int     `json:"numberOfPrivateShowsTaken,omitempty"`
}
