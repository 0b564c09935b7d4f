package tracker

import (
	"broadcast-coach/model"
)

// AddEvent appends a typed event to a user's ledger. The effective
// timestamp is data.Timestamp when supplied (the back-dated import path),
// otherwise now. Malformed input returns false rather than failing: callers
// sit inside the event poll loop and must not crash it.
func (t *Tracker) AddEvent(username string, eventType model.EventType, data model.EventData) bool {
	defer t.recoverOp("AddEvent")
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addEvent(username, eventType, data)
}

// addEvent is the ledger core; callers hold the lock.
func (t *Tracker) addEvent(username string, eventType model.EventType, data model.EventData) bool {
	if !validUsername(username) || !eventType.Valid() {
		return false
	}

	user := t.resolveUser(username)

	ts := t.now()
	if data.Timestamp != nil {
		ts = *data.Timestamp
		data.Timestamp = nil
	}

	if user.FirstSeenDate == nil {
		first := ts
		user.FirstSeenDate = &first
	}
	// Imported events can arrive out of order; last-seen only ever advances.
	if user.LastSeenDate == nil || ts.After(*user.LastSeenDate) {
		last := ts
		user.LastSeenDate = &last
	}

	event := model.Event{
		Username:  username,
		Type:      eventType,
		Timestamp: ts,
		Data:      data,
	}

	// Newest first, bounded from the tail.
	history := append([]model.Event{event}, user.EventHistory...)
	if limit := user.MaxHistory; len(history) > limit {
		history = history[:limit]
	}
	user.EventHistory = history

	if event.HasAmount() {
		t.updateTokenStats(user, &event)
	}

	t.mutated()
	return true
}

// AddUserMessage records a chat or private message: it lands both in the
// legacy recent-messages cache and as a ledger event.
func (t *Tracker) AddUserMessage(username, text string, isPrivate bool) bool {
	defer t.recoverOp("AddUserMessage")
	if !validUsername(username) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.applyUpdate(t.resolveUser(username), model.UserUpdate{RecentMessage: model.String(text)})

	eventType := model.EventChatMessage
	if isPrivate {
		eventType = model.EventPrivateMessage
	}
	return t.addEvent(username, eventType, model.EventData{
		Content:   model.String(text),
		IsPrivate: model.Bool(isPrivate),
	})
}

// RecordUserTip records a tip in the ledger and the legacy tip aggregates.
func (t *Tracker) RecordUserTip(username string, amount float64, note string) bool {
	defer t.recoverOp("RecordUserTip")
	if !validUsername(username) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.applyUpdate(t.resolveUser(username), model.UserUpdate{TipAmount: model.Float(amount)})

	data := model.EventData{Amount: model.Float(amount)}
	if note != "" {
		data.Note = model.String(note)
	}
	return t.addEvent(username, model.EventTip, data)
}

// RecordMediaPurchase records the purchase of a media item.
func (t *Tracker) RecordMediaPurchase(username, item string, amount float64) bool {
	return t.AddEvent(username, model.EventMediaPurchase, model.EventData{
		Item:   model.String(item),
		Amount: model.Float(amount),
	})
}

// RecordUserEnter marks the user online and records the presence event.
func (t *Tracker) RecordUserEnter(username string) bool {
	defer t.recoverOp("RecordUserEnter")
	if !validUsername(username) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyUpdate(t.resolveUser(username), model.UserUpdate{IsOnline: model.Bool(true)})
	return t.addEvent(username, model.EventUserEnter, model.EventData{})
}

// RecordUserLeave marks the user offline and records the presence event.
func (t *Tracker) RecordUserLeave(username string) bool {
	defer t.recoverOp("RecordUserLeave")
	if !validUsername(username) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyUpdate(t.resolveUser(username), model.UserUpdate{IsOnline: model.Bool(false)})
	return t.addEvent(username, model.EventUserLeave, model.EventData{})
}

func (t *Tracker) RecordFollow(username string) bool {
	return t.AddEvent(username, model.EventFollow, model.EventData{})
}

func (t *Tracker) RecordUnfollow(username string) bool {
	return t.AddEvent(username, model.EventUnfollow, model.EventData{})
}

func (t *Tracker) RecordFanclubJoin(username string) bool {
	return t.AddEvent(username, model.EventFanclubJoin, model.EventData{
		FanClubMember: model.Bool(true),
	})
}

func (t *Tracker) RecordBroadcastStart(username string) bool {
	return t.AddEvent(username, model.EventBroadcastStart, model.EventData{})
}

func (t *Tracker) RecordBroadcastStop(username string) bool {
	return t.AddEvent(username, model.EventBroadcastStop, model.EventData{})
}

func (t *Tracker) RecordRoomSubjectChange(username, subject string) bool {
	return t.AddEvent(username, model.EventRoomSubjectChange, model.EventData{
		Subject: model.String(subject),
	})
}
