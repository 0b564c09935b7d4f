package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"broadcast-coach/model"
	"broadcast-coach/storage"

	"github.com/rs/zerolog/log"
)

// scheduleSave arms the trailing-edge save debounce: repeated mutations
// within the window collapse into one write, the timer resetting on each.
// Callers hold the lock.
func (t *Tracker) scheduleSave() {
	if t.store == nil {
		return
	}
	if t.cfg.SaveDebounceMS <= 0 {
		// Debounce disabled; write through synchronously.
		t.saveUsers()
		return
	}

	window := time.Duration(t.cfg.SaveDebounceMS) * time.Millisecond
	if t.saveTimer == nil {
		t.saveTimer = time.AfterFunc(window, func() {
			t.SaveUsers()
		})
		return
	}
	t.saveTimer.Reset(window)
}

// SaveUsers serializes the directory and writes it to the storage backend.
// A quota failure triggers eviction of the least-recently-seen half of the
// users and one retry; only a failed retry surfaces as an error.
func (t *Tracker) SaveUsers() error {
	defer t.recoverOp("SaveUsers")
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveUsers()
}

func (t *Tracker) saveUsers() error {
	err := t.writeUsers()
	if err == nil {
		return nil
	}

	if errors.Is(err, storage.ErrQuotaExceeded) {
		t.evictOldestHalf()
		if retryErr := t.writeUsers(); retryErr != nil {
			log.Error().Err(retryErr).Msg("Save retry failed after quota eviction")
			t.notifier.DisplayError("Failed to save user data due to storage limits")
			return retryErr
		}
		return nil
	}

	log.Error().Err(err).Msg("Failed to save user data")
	t.notifier.DisplayError("Failed to save user data.")
	return err
}

// writeUsers marshals the directory as an array of [username, record]
// pairs, trimming each chat cache to its cap on the way out.
func (t *Tracker) writeUsers() error {
	limit := t.chatHistoryCap()

	pairs := make([][2]interface{}, 0, len(t.users))
	for name, user := range t.users {
		stored := *user
		if len(stored.MostRecentlySaidThings) > limit {
			stored.MostRecentlySaidThings = stored.MostRecentlySaidThings[:limit]
		}
		pairs = append(pairs, [2]interface{}{name, stored})
	}

	payload, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	return t.store.Set(context.Background(), t.usersKey(), string(payload))
}

// evictOldestHalf drops the least-recently-seen half of the directory,
// keeping the newer ceil(n/2) users. Records with no last-seen date count
// as oldest.
func (t *Tracker) evictOldestHalf() {
	names := make([]string, 0, len(t.users))
	for name := range t.users {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return timeOrZero(t.users[names[i]].LastSeenDate).Before(timeOrZero(t.users[names[j]].LastSeenDate))
	})

	keep := (len(names) + 1) / 2
	evicted := len(names) - keep

	survivors := make(map[string]*model.UserRecord, keep)
	for _, name := range names[evicted:] {
		survivors[name] = t.users[name]
	}
	t.users = survivors
	t.gen++

	log.Warn().
		Int("evicted", evicted).
		Int("kept", keep).
		Msg("Storage quota exceeded, evicted least recently seen users")
}

// LoadUsers replaces the directory with the persisted one. Every stored
// record is unmarshalled onto factory defaults so old data survives schema
// additions, and online status is always reset. Errors leave an empty
// directory and a visible notification; nothing is thrown to the caller.
func (t *Tracker) LoadUsers() {
	defer t.recoverOp("LoadUsers")
	t.mu.Lock()
	defer t.mu.Unlock()

	t.users = make(map[string]*model.UserRecord)
	t.gen++

	if t.store == nil {
		return
	}

	payload, found, err := t.store.Get(context.Background(), t.usersKey())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read user data")
		t.notifier.DisplayError("Failed to load user data. Starting with default settings.")
		return
	}
	if !found {
		return
	}

	var pairs [][]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &pairs); err != nil {
		log.Error().Err(err).Msg("Failed to parse stored user data")
		t.notifier.DisplayError("Failed to load user data. Starting with default settings.")
		return
	}

	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		var username string
		if err := json.Unmarshal(pair[0], &username); err != nil || !validUsername(username) {
			continue
		}

		user := t.newUser(username)
		if err := json.Unmarshal(pair[1], user); err != nil {
			log.Warn().Str("username", username).Err(err).Msg("Skipping unreadable stored user")
			continue
		}
		user.Username = username
		user.IsOnline = false
		normalizeUser(user, t.cfg.MaxHistory)
		t.users[username] = user
	}

	log.Info().Int("users", len(t.users)).Msg("Loaded user directory")
}

// Flush cancels any pending debounced save and writes immediately. Called
// on shutdown.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	if t.saveTimer != nil {
		t.saveTimer.Stop()
	}
	t.mu.Unlock()
	return t.SaveUsers()
}

func (t *Tracker) usersKey() string {
	if t.cfg.UsersKey != "" {
		return t.cfg.UsersKey
	}
	return "broadcastCoachUsers"
}

func (t *Tracker) backupKey() string {
	if t.cfg.BackupKey != "" {
		return t.cfg.BackupKey
	}
	return "broadcastCoachBackup"
}
