package domain

import "time"

// StudyGroup snapshot, trimmed to what the live widgets display.
type StudyGroup struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	OwnerID     int    `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	GroupType   string `json:"group_type"`
	State       string `json:"state"`
	MaxMembers  int    `json:"max_members"`
	MemberCount int    `json:"member_count"`
}

// LearningStreak is an opaque backend snapshot. The core never computes
// streak values; it only re-fetches them when a milestone event arrives.
type LearningStreak struct {
	ID               int        `json:"id"`
	UserID           int        `json:"user_id"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	TotalActivities  int        `json:"total_activities"`
	NextMilestone    int        `json:"next_milestone"`
	DailyGoalMet     bool       `json:"daily_goal_met"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
}

// LeaderboardEntry is an opaque backend snapshot, re-fetched on
// leaderboard update events.
type LeaderboardEntry struct {
	ID         int    `json:"id"`
	UserID     int    `json:"user_id"`
	UserName   string `json:"user_name"`
	Category   string `json:"category"`
	Period     string `json:"period"`
	Rank       int    `json:"rank"`
	RankChange int    `json:"rank_change"`
	Score      int    `json:"score"`
}
