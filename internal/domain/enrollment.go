package domain

import "time"

type EnrollmentState string

const (
	EnrollmentPending   EnrollmentState = "pending"
	EnrollmentActive    EnrollmentState = "active"
	EnrollmentCompleted EnrollmentState = "completed"
	EnrollmentExpired   EnrollmentState = "expired"
)

// Enrollment holds the raw backend fields. The derived state is never
// stored; call State to recompute it on every read.
type Enrollment struct {
	ID             int        `json:"id"`
	UserID         int        `json:"user_id"`
	CourseID       int        `json:"course_id"`
	CourseName     string     `json:"course_name"`
	Progress       float64    `json:"progress"`
	EnrollmentDate *time.Time `json:"enrollment_date,omitempty"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	LastAccessDate *time.Time `json:"last_access_date,omitempty"`
}

// State derives the enrollment state from the raw dates. Precedence order:
// completion wins over expiry, expiry over everything else, and an
// enrollment that was never accessed is pending.
func (e Enrollment) State(now time.Time) EnrollmentState {
	switch {
	case e.CompletedDate != nil:
		return EnrollmentCompleted
	case e.ExpirationDate != nil && e.ExpirationDate.Before(now):
		return EnrollmentExpired
	case e.LastAccessDate == nil:
		return EnrollmentPending
	default:
		return EnrollmentActive
	}
}
