package model

import "time"

// EventType identifies the kind of user activity an event records.
type EventType string

const (
	EventChatMessage       EventType = "chatMessage"
	EventPrivateMessage    EventType = "privateMessage"
	EventTip               EventType = "tip"
	EventPrivateShow       EventType = "privateShow"
	EventPrivateShowSpy    EventType = "privateShowSpy"
	EventMediaPurchase     EventType = "mediaPurchase"
	EventUserEnter         EventType = "userEnter"
	EventUserLeave         EventType = "userLeave"
	EventFollow            EventType = "follow"
	EventUnfollow          EventType = "unfollow"
	EventFanclubJoin       EventType = "fanclubJoin"
	EventBroadcastStart    EventType = "broadcastStart"
	EventBroadcastStop     EventType = "broadcastStop"
	EventRoomSubjectChange EventType = "roomSubjectChange"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventChatMessage, EventPrivateMessage, EventTip, EventPrivateShow,
		EventPrivateShowSpy, EventMediaPurchase, EventUserEnter, EventUserLeave,
		EventFollow, EventUnfollow, EventFanclubJoin, EventBroadcastStart,
		EventBroadcastStop, EventRoomSubjectChange:
		return true
	}
	return false
}

// EventData is the fixed-shape payload attached to every event. Fields that
// do not apply to the event type stay nil and serialize as JSON null, so
// stored histories keep a uniform shape across event types.
//
// Timestamp is an input-only field: when set on the data passed to AddEvent
// it back-dates the event (the import path); it is never serialized because
// the event itself carries the effective timestamp.
type EventData struct {
	Note          *string    `json:"note"`
	Amount        *float64   `json:"amount"`
	Content       *string    `json:"content"`
	IsPrivate     *bool      `json:"isPrivate"`
	FanClubMember *bool      `json:"fanClubMember"`
	Item          *string    `json:"item"`
	Subject       *string    `json:"subject"`
	Duration      *float64   `json:"duration"`
	Tokens        *float64   `json:"tokens"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`

	Timestamp *time.Time `json:"-"`
}

// Event is an immutable record of one user activity.
type Event struct {
	Username  string    `json:"username"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// HasAmount reports whether the event carries a token amount.
func (e *Event) HasAmount() bool {
	return e.Data.Amount != nil
}

// SpendCategory buckets an event's amount for the period statistics:
// private shows and private messages count as "privates", media purchases
// as "media", everything else that carries an amount as "tips".
func (e *Event) SpendCategory() string {
	switch e.Type {
	case EventPrivateMessage, EventPrivateShow, EventPrivateShowSpy:
		return CategoryPrivates
	case EventMediaPurchase:
		return CategoryMedia
	default:
		return CategoryTips
	}
}

// Helpers for building the pointer-shaped EventData payloads.

func String(s string) *string       { return &s }
func Float(f float64) *float64      { return &f }
func Bool(b bool) *bool             { return &b }
func Time(t time.Time) *time.Time   { return &t }
