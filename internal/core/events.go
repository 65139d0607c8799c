package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/retrocraftdevops/seitech-sub002/internal/domain"
)

// Wire names of the inbound event types.
const (
	EventUpvote            = "discussion:upvote"
	EventReply             = "discussion:reply"
	EventView              = "discussion:view"
	EventGroupJoin         = "study-group:join"
	EventStreakMilestone   = "streak:milestone"
	EventLeaderboardUpdate = "leaderboard:update"
	EventNotification      = "notification"
)

var (
	// ErrUnknownEventType marks a server-added type this build does not
	// know; the router drops such events silently.
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// Envelope is the wire shape of every inbound event.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event is the closed union of inbound live events. One variant exists per
// wire type, so handlers switch on concrete types instead of poking at
// untyped maps.
type Event interface {
	EventType() string
	isEvent()
}

// UpvoteKind distinguishes what an upvote event is counting.
type UpvoteKind string

const (
	UpvoteDiscussion UpvoteKind = "discussion"
	UpvoteReply      UpvoteKind = "reply"
)

type UpvoteEvent struct {
	Kind  UpvoteKind `json:"type"`
	ID    int        `json:"id"`
	Count int        `json:"count"`
}

type ReplyEvent struct {
	DiscussionID int          `json:"discussion_id"`
	Reply        domain.Reply `json:"reply"`
}

type ViewEvent struct {
	DiscussionID int `json:"discussion_id"`
	Count        int `json:"count"`
}

type GroupJoinEvent struct {
	GroupID     int    `json:"group_id"`
	UserName    string `json:"user_name"`
	MemberCount int    `json:"member_count"`
}

type StreakMilestoneEvent struct {
	UserID    int    `json:"user_id"`
	Milestone int    `json:"milestone"`
	Badge     string `json:"badge"`
}

type LeaderboardUpdateEvent struct {
	Category string `json:"category"`
	Period   string `json:"period"`
}

type NotificationEvent struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Link    string         `json:"link,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func (UpvoteEvent) EventType() string            { return EventUpvote }
func (ReplyEvent) EventType() string             { return EventReply }
func (ViewEvent) EventType() string              { return EventView }
func (GroupJoinEvent) EventType() string         { return EventGroupJoin }
func (StreakMilestoneEvent) EventType() string   { return EventStreakMilestone }
func (LeaderboardUpdateEvent) EventType() string { return EventLeaderboardUpdate }
func (NotificationEvent) EventType() string      { return EventNotification }

func (UpvoteEvent) isEvent()            {}
func (ReplyEvent) isEvent()             {}
func (ViewEvent) isEvent()              {}
func (GroupJoinEvent) isEvent()         {}
func (StreakMilestoneEvent) isEvent()   {}
func (LeaderboardUpdateEvent) isEvent() {}
func (NotificationEvent) isEvent()      {}

// DecodeEvent parses a wire frame into its typed variant.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return decodePayload(env.Type, env.Payload)
}

func decodePayload(eventType string, payload []byte) (Event, error) {
	var ev Event
	switch eventType {
	case EventUpvote:
		ev = &UpvoteEvent{}
	case EventReply:
		ev = &ReplyEvent{}
	case EventView:
		ev = &ViewEvent{}
	case EventGroupJoin:
		ev = &GroupJoinEvent{}
	case EventStreakMilestone:
		ev = &StreakMilestoneEvent{}
	case EventLeaderboardUpdate:
		ev = &LeaderboardUpdateEvent{}
	case EventNotification:
		ev = &NotificationEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload for %q", ErrMalformedEvent, eventType)
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return deref(ev), nil
}

// deref returns the value variant so handlers can type-switch on
// non-pointer types.
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *UpvoteEvent:
		return *e
	case *ReplyEvent:
		return *e
	case *ViewEvent:
		return *e
	case *GroupJoinEvent:
		return *e
	case *StreakMilestoneEvent:
		return *e
	case *LeaderboardUpdateEvent:
		return *e
	case *NotificationEvent:
		return *e
	default:
		return ev
	}
}

// EncodeEvent builds the wire frame for an event.
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.EventType(), Payload: payload})
}
