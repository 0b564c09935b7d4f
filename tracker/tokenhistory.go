package tracker

import (
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"broadcast-coach/model"
	"broadcast-coach/utils"
)

// showTick is one per-tick charge row from a private or spy show.
type showTick struct {
	timestamp time.Time
	amount    float64
	spy       bool
}

// pendingEvent is an event queued for commit during a token-history import.
type pendingEvent struct {
	username  string
	eventType model.EventType
	timestamp time.Time
	data      model.EventData
}

// ImportTokenHistory ingests a token-history CSV export. Rows are
// deduplicated against existing history, per-tick private/spy show charges
// are reconstructed into one session event per show, and everything else
// becomes a back-dated tip. Re-importing the same CSV is a no-op.
//
// The expected header contains User, Token change and Timestamp columns,
// optionally Note; extra columns are ignored.
func (t *Tracker) ImportTokenHistory(csvText string) (result model.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			t.recoverNotify("ImportTokenHistory", r)
			result = model.ImportResult{Success: false, Message: "Import failed unexpectedly"}
		}
	}()

	reader := csv.NewReader(strings.NewReader(csvText))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return model.ImportResult{Success: false, Message: fmt.Sprintf("Failed to parse CSV: %v", err)}
	}
	if len(rows) == 0 {
		return model.ImportResult{Success: false, Message: "CSV file is empty"}
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return model.ImportResult{Success: false, Message: err.Error()}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Pass 1: parse, filter, dedup and classify rows.
	ticks := make(map[string][]showTick)
	var tips []pendingEvent

	for _, row := range rows[1:] {
		if len(row) <= cols.timestamp || len(row) <= cols.user || len(row) <= cols.amount {
			continue
		}

		username := strings.TrimSpace(row[cols.user])
		if !validUsername(username) {
			continue
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(row[cols.amount]), 64)
		if err != nil || amount <= 0 || math.IsNaN(amount) {
			continue
		}

		ts, ok := utils.ParseTimestamp(row[cols.timestamp])
		if !ok {
			continue
		}

		note := ""
		if cols.note >= 0 && len(row) > cols.note {
			note = row[cols.note]
		}
		isShowTick := strings.Contains(note, "Private") || strings.Contains(note, "Spy")

		if t.isDuplicateImport(username, ts, amount, isShowTick) {
			continue
		}

		if isShowTick {
			ticks[username] = append(ticks[username], showTick{
				timestamp: ts,
				amount:    amount,
				spy:       strings.Contains(note, "Spy"),
			})
		} else {
			tips = append(tips, pendingEvent{
				username:  username,
				eventType: model.EventTip,
				timestamp: ts,
				data: model.EventData{
					Amount: model.Float(amount),
					Note:   model.String(note),
				},
			})
		}
	}

	// Pass 2: reconstruct show sessions from the queued ticks.
	pending := tips
	for username, userTicks := range ticks {
		pending = append(pending, t.reconstructShows(username, userTicks)...)
	}

	// Pass 3: commit chronologically, preserving original timestamps.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].timestamp.Before(pending[j].timestamp)
	})

	var tokens float64
	touched := make(map[string]bool)
	for _, p := range pending {
		data := p.data
		data.Timestamp = model.Time(p.timestamp)
		if !t.addEvent(p.username, p.eventType, data) {
			continue
		}
		if data.Amount != nil {
			tokens += *data.Amount
		}
		touched[p.username] = true
	}

	return model.ImportResult{
		Success: true,
		Message: fmt.Sprintf("Imported %s tokens for %d users", formatTokens(tokens), len(touched)),
		Stats:   model.ImportStats{Users: len(touched), Tokens: tokens},
	}
}

type columnIndexes struct {
	user      int
	amount    int
	timestamp int
	note      int
}

// resolveColumns locates the required columns in the header row; extra
// columns are ignored, Note is optional.
func resolveColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{user: -1, amount: -1, timestamp: -1, note: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "User":
			cols.user = i
		case "Token change":
			cols.amount = i
		case "Timestamp":
			cols.timestamp = i
		case "Note":
			cols.note = i
		}
	}

	var missing []string
	if cols.user < 0 {
		missing = append(missing, "User")
	}
	if cols.amount < 0 {
		missing = append(missing, "Token change")
	}
	if cols.timestamp < 0 {
		missing = append(missing, "Timestamp")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// isDuplicateImport reports whether an imported row is already represented
// in the user's history: either an exact (timestamp, amount) match, or for
// show ticks, a timestamp covered by an already-reconstructed show session.
// The latter keeps re-imports idempotent after ticks were folded into one
// session event. Callers hold the lock.
func (t *Tracker) isDuplicateImport(username string, ts time.Time, amount float64, isShowTick bool) bool {
	user, ok := t.users[username]
	if !ok {
		return false
	}

	for i := range user.EventHistory {
		event := &user.EventHistory[i]
		if event.HasAmount() && *event.Data.Amount == amount && event.Timestamp.Equal(ts) {
			return true
		}
		if isShowTick &&
			(event.Type == model.EventPrivateShow || event.Type == model.EventPrivateShowSpy) &&
			event.Data.StartTime != nil && event.Data.EndTime != nil &&
			!ts.Before(*event.Data.StartTime) && !ts.After(*event.Data.EndTime) {
			return true
		}
	}
	return false
}

// reconstructShows partitions a user's show ticks into sessions wherever
// the gap between consecutive ticks exceeds the configured threshold, and
// emits one session event per group. A lone tick still becomes a session
// with zero duration.
func (t *Tracker) reconstructShows(username string, ticks []showTick) []pendingEvent {
	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].timestamp.Before(ticks[j].timestamp)
	})

	gap := 30 * time.Second
	if t.cfg.ShowGapSeconds > 0 {
		gap = time.Duration(t.cfg.ShowGapSeconds) * time.Second
	}

	var shows []pendingEvent
	start := 0
	for i := 1; i <= len(ticks); i++ {
		if i < len(ticks) && ticks[i].timestamp.Sub(ticks[i-1].timestamp) <= gap {
			continue
		}
		shows = append(shows, buildShowEvent(username, ticks[start:i]))
		start = i
	}
	return shows
}

func buildShowEvent(username string, group []showTick) pendingEvent {
	first := group[0]
	last := group[len(group)-1]

	var total float64
	for _, tick := range group {
		total += tick.amount
	}

	duration := math.Floor(last.timestamp.Sub(first.timestamp).Seconds())
	if duration < 0 {
		duration = 0
	}

	eventType := model.EventPrivateShow
	if first.spy {
		eventType = model.EventPrivateShowSpy
	}

	return pendingEvent{
		username:  username,
		eventType: eventType,
		timestamp: first.timestamp,
		data: model.EventData{
			Tokens:    model.Float(total),
			Amount:    model.Float(total),
			Duration:  model.Float(duration),
			StartTime: model.Time(first.timestamp),
			EndTime:   model.Time(last.timestamp),
		},
	}
}

func formatTokens(tokens float64) string {
	return strconv.FormatFloat(tokens, 'f', -1, 64)
}
