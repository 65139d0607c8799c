// Package domain contains the platform's snapshot types and the pure
// derived-state logic computed from them. Nothing here touches a transport.
package domain

import "time"

type DiscussionState string

const (
	DiscussionDraft     DiscussionState = "draft"
	DiscussionPublished DiscussionState = "published"
	DiscussionResolved  DiscussionState = "resolved"
	DiscussionClosed    DiscussionState = "closed"
)

// Discussion is a read-only snapshot from the backend. Counters on it are
// refreshed by live events, never computed locally.
type Discussion struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Content     string          `json:"content"`
	AuthorID    int             `json:"author_id"`
	AuthorName  string          `json:"author_name"`
	Category    string          `json:"category"`
	State       DiscussionState `json:"state"`
	CourseID    int             `json:"course_id,omitempty"`
	ReplyCount  int             `json:"reply_count"`
	UpvoteCount int             `json:"upvote_count"`
	ViewCount   int             `json:"view_count"`
	CreateDate  time.Time       `json:"create_date"`
}

// Reply is the flat wire record. ParentID is nil for top-level replies.
type Reply struct {
	ID           int       `json:"id"`
	DiscussionID int       `json:"discussion_id"`
	ParentID     *int      `json:"parent_id,omitempty"`
	AuthorID     int       `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	Content      string    `json:"content"`
	UpvoteCount  int       `json:"upvote_count"`
	CreateDate   time.Time `json:"create_date"`
}
