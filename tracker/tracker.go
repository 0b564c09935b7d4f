package tracker

import (
	"sort"
	"sync"
	"time"

	"broadcast-coach/cache"
	"broadcast-coach/config"
	"broadcast-coach/model"
	"broadcast-coach/storage"

	"github.com/rs/zerolog/log"
)

// anonymousUser is the placeholder name the event source reports for
// viewers who are not logged in; they are never tracked.
const anonymousUser = "Anonymous"

// Tracker owns the user directory: the in-memory map of username to record,
// the event ledger and token statistics on each record, and the persistence
// of the whole directory through a storage backend. All access is
// serialized behind one mutex, so every public operation is atomic from the
// caller's point of view.
type Tracker struct {
	mu    sync.Mutex
	users map[string]*model.UserRecord

	store    storage.Backend
	spend    *cache.SpendCache
	cfg      config.TrackerConfig
	notifier Notifier

	// gen counts mutations; spend-cache keys embed it so stale query
	// results are never served after a change.
	gen uint64

	saveTimer *time.Timer

	// now is replaceable in tests to pin the period windows.
	now func() time.Time
}

// New creates a tracker over the given backend and immediately loads any
// persisted directory. A nil notifier falls back to logging.
func New(store storage.Backend, spend *cache.SpendCache, cfg config.TrackerConfig, notifier Notifier) *Tracker {
	if notifier == nil {
		notifier = logNotifier{}
	}
	t := &Tracker{
		users:    make(map[string]*model.UserRecord),
		store:    store,
		spend:    spend,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
	}
	t.LoadUsers()
	return t
}

// recoverOp converts a panic inside a public operation into a logged,
// user-visible notification; the tracker stays usable afterwards.
func (t *Tracker) recoverOp(op string) {
	if r := recover(); r != nil {
		t.recoverNotify(op, r)
	}
}

func (t *Tracker) recoverNotify(op string, r interface{}) {
	log.Error().Str("operation", op).Interface("panic", r).Msg("Recovered from unexpected failure")
	t.notifier.DisplayError("Operation " + op + " failed unexpectedly")
}

func validUsername(username string) bool {
	return username != "" && username != anonymousUser
}

// AddUser creates a record for username if none exists. Returns true only
// when a new record was created.
func (t *Tracker) AddUser(username string) bool {
	defer t.recoverOp("AddUser")
	if !validUsername(username) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.users[username]; exists {
		return false
	}
	t.users[username] = t.newUser(username)
	t.mutated()
	return true
}

// UpdateUser applies a partial update to a record, creating it on first
// reference. The last-seen date always advances to now.
func (t *Tracker) UpdateUser(username string, updates model.UserUpdate) bool {
	defer t.recoverOp("UpdateUser")
	if !validUsername(username) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyUpdate(t.resolveUser(username), updates)
	t.mutated()
	return true
}

// GetUser returns a copy of the record for username, or nil when unknown.
func (t *Tracker) GetUser(username string) *model.UserRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[username]
	if !ok {
		return nil
	}
	copied := *user
	return &copied
}

// GetAllUsers returns copies of all records, online users first, then by
// last-seen date descending.
func (t *Tracker) GetAllUsers() []model.UserRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allUsersSorted()
}

func (t *Tracker) allUsersSorted() []model.UserRecord {
	users := make([]model.UserRecord, 0, len(t.users))
	for _, u := range t.users {
		users = append(users, *u)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].IsOnline != users[j].IsOnline {
			return users[i].IsOnline
		}
		return timeOrZero(users[i].LastSeenDate).After(timeOrZero(users[j].LastSeenDate))
	})
	return users
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// MarkUserActive marks a user online, creating the record if needed.
func (t *Tracker) MarkUserActive(username string) bool {
	return t.UpdateUser(username, model.UserUpdate{IsOnline: model.Bool(true)})
}

// MarkUserOnline is an alias for MarkUserActive.
func (t *Tracker) MarkUserOnline(username string) bool {
	return t.MarkUserActive(username)
}

// MarkUserOffline marks a user offline.
func (t *Tracker) MarkUserOffline(username string) bool {
	return t.UpdateUser(username, model.UserUpdate{IsOnline: model.Bool(false)})
}

// ClearAllUsers drops the whole directory.
func (t *Tracker) ClearAllUsers() bool {
	defer t.recoverOp("ClearAllUsers")
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users = make(map[string]*model.UserRecord)
	t.mutated()
	return true
}

// AddUserObject inserts a complete record, merging it onto factory defaults
// so partially-shaped imports still load. Online status is always reset.
func (t *Tracker) AddUserObject(user model.UserRecord) bool {
	defer t.recoverOp("AddUserObject")
	if !validUsername(user.Username) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.addUserObject(user)
	t.mutated()
	return true
}

func (t *Tracker) addUserObject(user model.UserRecord) {
	normalizeUser(&user, t.cfg.MaxHistory)
	user.IsOnline = false
	t.users[user.Username] = &user
}

// normalizeUser fills the fields a stored or imported record may be missing
// relative to the factory shape.
func normalizeUser(user *model.UserRecord, maxHistory int) {
	if user.MostRecentlySaidThings == nil {
		user.MostRecentlySaidThings = []string{}
	}
	if user.EventHistory == nil {
		user.EventHistory = []model.Event{}
	}
	if user.MaxHistory <= 0 {
		if maxHistory > 0 {
			user.MaxHistory = maxHistory
		} else {
			user.MaxHistory = model.DefaultMaxHistory
		}
	}
}

func (t *Tracker) newUser(username string) *model.UserRecord {
	user := model.DefaultUser(username)
	if t.cfg.MaxHistory > 0 {
		user.MaxHistory = t.cfg.MaxHistory
	}
	return user
}

// resolveUser returns the record for username, creating it on first
// reference. Callers hold the lock.
func (t *Tracker) resolveUser(username string) *model.UserRecord {
	user, ok := t.users[username]
	if !ok {
		user = t.newUser(username)
		t.users[username] = user
	}
	return user
}

func (t *Tracker) applyUpdate(user *model.UserRecord, updates model.UserUpdate) {
	if updates.RecentMessage != nil {
		limit := t.chatHistoryCap()
		messages := append([]string{*updates.RecentMessage}, user.MostRecentlySaidThings...)
		if len(messages) > limit {
			messages = messages[:limit]
		}
		user.MostRecentlySaidThings = messages
	}
	if updates.TipAmount != nil {
		user.AmountTippedTotal += *updates.TipAmount
		user.MostRecentTipAmount = *updates.TipAmount
		now := t.now()
		user.MostRecentTipDatetime = &now
	}
	if updates.IsOnline != nil {
		user.IsOnline = *updates.IsOnline
	}
	if updates.RealName != nil {
		user.RealName = updates.RealName
	}
	if updates.RealLocation != nil {
		user.RealLocation = updates.RealLocation
	}
	if updates.Preferences != nil {
		user.Preferences = *updates.Preferences
	}
	if updates.Interests != nil {
		user.Interests = *updates.Interests
	}
	if updates.NumberOfPrivateShowsTaken != nil {
		user.NumberOfPrivateShowsTaken = *updates.NumberOfPrivateShowsTaken
	}

	now := t.now()
	user.LastSeenDate = &now
}

func (t *Tracker) chatHistoryCap() int {
	if t.cfg.MaxChatHistory > 0 {
		return t.cfg.MaxChatHistory
	}
	return 50
}

// mutated bumps the cache generation and schedules a debounced save.
// Callers hold the lock.
func (t *Tracker) mutated() {
	t.gen++
	t.scheduleSave()
}
