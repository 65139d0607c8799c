package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
	"github.com/retrocraftdevops/seitech-sub002/internal/domain"
	"github.com/retrocraftdevops/seitech-sub002/internal/erp"
)

// Feature hooks are the consumers of the live connection. Each one
// subscribes the rooms it needs, registers scoped router handlers, and
// releases both exactly once on Close. Hooks never close the connection
// itself; the manager's reference counting decides that.

// DiscussionRoom names the live channel for one discussion.
func DiscussionRoom(discussionID int) string {
	return fmt.Sprintf("discussion:%d", discussionID)
}

func StudyGroupRoom(groupID int) string {
	return fmt.Sprintf("study-group:%d", groupID)
}

func UserStreakRoom(userID int) string {
	return fmt.Sprintf("user:%d:streaks", userID)
}

func UserNotificationRoom(userID int) string {
	return fmt.Sprintf("user:%d:notifications", userID)
}

const LeaderboardRoom = "leaderboard"

type DiscussionFeedCallbacks struct {
	OnUpvote    func(count int)
	OnReply     func(reply domain.Reply)
	OnViewCount func(count int)
}

// DiscussionFeed follows one discussion: it keeps the flat reply list and
// the assembled thread current, and forwards scoped counter events.
type DiscussionFeed struct {
	manager      *Manager
	rpc          *erp.Client
	discussionID int
	room         string

	mu      sync.Mutex
	replies []domain.Reply
	thread  []*domain.ReplyNode

	cancels   []func()
	closeOnce sync.Once
}

func NewDiscussionFeed(m *Manager, rpc *erp.Client, discussionID int, cb DiscussionFeedCallbacks) *DiscussionFeed {
	f := &DiscussionFeed{
		manager:      m,
		rpc:          rpc,
		discussionID: discussionID,
		room:         DiscussionRoom(discussionID),
	}
	m.Subscribe(f.room)

	router := m.Router()
	f.cancels = append(f.cancels,
		router.On(core.EventUpvote, func(ev core.Event) bool {
			u, ok := ev.(core.UpvoteEvent)
			return ok && u.Kind == core.UpvoteDiscussion && u.ID == discussionID
		}, func(ev core.Event) {
			if cb.OnUpvote != nil {
				cb.OnUpvote(ev.(core.UpvoteEvent).Count)
			}
		}),
		router.On(core.EventReply, func(ev core.Event) bool {
			r, ok := ev.(core.ReplyEvent)
			return ok && r.DiscussionID == discussionID
		}, func(ev core.Event) {
			r := ev.(core.ReplyEvent).Reply
			f.appendReply(r)
			if cb.OnReply != nil {
				cb.OnReply(r)
			}
		}),
		router.On(core.EventView, func(ev core.Event) bool {
			v, ok := ev.(core.ViewEvent)
			return ok && v.DiscussionID == discussionID
		}, func(ev core.Event) {
			if cb.OnViewCount != nil {
				cb.OnViewCount(ev.(core.ViewEvent).Count)
			}
		}),
	)
	return f
}

// Refresh re-reads the flat reply list from the backend and reassembles the
// thread. The backend returns replies sorted by creation time ascending.
func (f *DiscussionFeed) Refresh(ctx context.Context) error {
	replies, err := erp.Search[domain.Reply](ctx, f.rpc, "seitech.discussion.reply",
		map[string]any{"discussion_id": f.discussionID}, 0)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.replies = replies
	f.thread = domain.AssembleThread(replies)
	f.mu.Unlock()
	return nil
}

// appendReply folds a live reply into the flat list. An id the list already
// holds is an echo of a record a concurrent Refresh returned; it replaces
// the stored copy instead of nesting the reply twice.
func (f *DiscussionFeed) appendReply(r domain.Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.replies {
		if f.replies[i].ID == r.ID {
			f.replies[i] = r
			f.thread = domain.AssembleThread(f.replies)
			return
		}
	}
	f.replies = append(f.replies, r)
	f.thread = domain.AssembleThread(f.replies)
}

// Thread returns the current assembled reply tree.
func (f *DiscussionFeed) Thread() []*domain.ReplyNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.ReplyNode, len(f.thread))
	copy(out, f.thread)
	return out
}

func (f *DiscussionFeed) Close() {
	f.closeOnce.Do(func() {
		for _, cancel := range f.cancels {
			cancel()
		}
		f.manager.Unsubscribe(f.room)
	})
}

type GroupJoin struct {
	UserName    string
	MemberCount int
}

// StudyGroupFeed follows membership activity of one study group.
type StudyGroupFeed struct {
	manager   *Manager
	room      string
	cancel    func()
	closeOnce sync.Once
}

func NewStudyGroupFeed(m *Manager, groupID int, onJoin func(GroupJoin)) *StudyGroupFeed {
	f := &StudyGroupFeed{manager: m, room: StudyGroupRoom(groupID)}
	m.Subscribe(f.room)
	f.cancel = m.Router().On(core.EventGroupJoin, func(ev core.Event) bool {
		j, ok := ev.(core.GroupJoinEvent)
		return ok && j.GroupID == groupID
	}, func(ev core.Event) {
		j := ev.(core.GroupJoinEvent)
		if onJoin != nil {
			onJoin(GroupJoin{UserName: j.UserName, MemberCount: j.MemberCount})
		}
	})
	return f
}

func (f *StudyGroupFeed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		f.manager.Unsubscribe(f.room)
	})
}

// StreakFeed watches one user's streak. Milestone events only tell it when
// to re-fetch; the streak values themselves always come from the backend.
type StreakFeed struct {
	manager   *Manager
	rpc       *erp.Client
	userID    int
	room      string
	cancel    func()
	closeOnce sync.Once

	mu     sync.Mutex
	streak *domain.LearningStreak
}

func NewStreakFeed(m *Manager, rpc *erp.Client, userID int, onMilestone func(milestone int, badge string)) *StreakFeed {
	f := &StreakFeed{manager: m, rpc: rpc, userID: userID, room: UserStreakRoom(userID)}
	m.Subscribe(f.room)
	f.cancel = m.Router().On(core.EventStreakMilestone, func(ev core.Event) bool {
		s, ok := ev.(core.StreakMilestoneEvent)
		return ok && s.UserID == userID
	}, func(ev core.Event) {
		s := ev.(core.StreakMilestoneEvent)
		if onMilestone != nil {
			onMilestone(s.Milestone, s.Badge)
		}
	})
	return f
}

// Refresh re-reads the streak snapshot.
func (f *StreakFeed) Refresh(ctx context.Context) error {
	streaks, err := erp.Search[domain.LearningStreak](ctx, f.rpc, "seitech.learning.streak",
		map[string]any{"user_id": f.userID}, 1)
	if err != nil {
		return err
	}
	f.mu.Lock()
	if len(streaks) > 0 {
		f.streak = &streaks[0]
	}
	f.mu.Unlock()
	return nil
}

func (f *StreakFeed) Streak() *domain.LearningStreak {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streak
}

func (f *StreakFeed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		f.manager.Unsubscribe(f.room)
	})
}

// LeaderboardFeed re-fetches a leaderboard page whenever the backend
// announces that a category/period has been recomputed.
type LeaderboardFeed struct {
	manager   *Manager
	rpc       *erp.Client
	cancel    func()
	closeOnce sync.Once

	mu      sync.Mutex
	entries []domain.LeaderboardEntry
}

func NewLeaderboardFeed(m *Manager, rpc *erp.Client, onUpdate func(category, period string)) *LeaderboardFeed {
	f := &LeaderboardFeed{manager: m, rpc: rpc}
	m.Subscribe(LeaderboardRoom)
	f.cancel = m.Router().On(core.EventLeaderboardUpdate, nil, func(ev core.Event) {
		u := ev.(core.LeaderboardUpdateEvent)
		if onUpdate != nil {
			onUpdate(u.Category, u.Period)
		}
	})
	return f
}

// Refresh re-reads the entries for one category and period.
func (f *LeaderboardFeed) Refresh(ctx context.Context, category, period string, limit int) error {
	entries, err := erp.Search[domain.LeaderboardEntry](ctx, f.rpc, "seitech.leaderboard.entry",
		map[string]any{"category": category, "period": period}, limit)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
	return nil
}

func (f *LeaderboardFeed) Entries() []domain.LeaderboardEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LeaderboardEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *LeaderboardFeed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		f.manager.Unsubscribe(LeaderboardRoom)
	})
}

// NotificationBell is the notification widget's hook: one room subscription
// plus a NotificationCenter fed from the router.
type NotificationBell struct {
	manager   *Manager
	room      string
	center    *NotificationCenter
	closeOnce sync.Once
}

func NewNotificationBell(m *Manager, userID int) *NotificationBell {
	b := &NotificationBell{
		manager: m,
		room:    UserNotificationRoom(userID),
		center:  NewNotificationCenter(m.Router()),
	}
	m.Subscribe(b.room)
	return b
}

func (b *NotificationBell) Center() *NotificationCenter { return b.center }

func (b *NotificationBell) Close() {
	b.closeOnce.Do(func() {
		b.center.Close()
		b.manager.Unsubscribe(b.room)
	})
}
