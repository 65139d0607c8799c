package domain

import "time"

type ScheduleState string

const (
	ScheduleDraft     ScheduleState = "draft"
	ScheduleScheduled ScheduleState = "scheduled"
	ScheduleConfirmed ScheduleState = "confirmed"
	ScheduleCompleted ScheduleState = "completed"
	ScheduleCancelled ScheduleState = "cancelled"
)

// UnlimitedSpots is the sentinel AvailableSpots returns when a session has
// no attendee cap.
const UnlimitedSpots = -1

// Schedule is a scheduled live session snapshot.
type Schedule struct {
	ID                   int           `json:"id"`
	Name                 string        `json:"name"`
	CourseID             int           `json:"course_id"`
	InstructorID         int           `json:"instructor_id"`
	InstructorName       string        `json:"instructor_name"`
	State                ScheduleState `json:"state"`
	MaxAttendees         int           `json:"max_attendees"`
	AttendeeCount        int           `json:"attendee_count"`
	RegistrationDeadline *time.Time    `json:"registration_deadline,omitempty"`
	StartDatetime        time.Time     `json:"start_datetime"`
	EndDatetime          time.Time     `json:"end_datetime"`
}

// AvailableSpots returns the remaining seat count, UnlimitedSpots when there
// is no cap, and never a negative number even if the session is overbooked.
func (s Schedule) AvailableSpots() int {
	if s.MaxAttendees == 0 {
		return UnlimitedSpots
	}
	if n := s.MaxAttendees - s.AttendeeCount; n > 0 {
		return n
	}
	return 0
}

// RegistrationRejection is the typed, user-facing outcome of a failed
// eligibility check. It is returned as a value, never panicked.
type RegistrationRejection struct {
	Reason string
}

func (r *RegistrationRejection) Error() string { return r.Reason }

var (
	ErrNotOpenForRegistration = &RegistrationRejection{Reason: "this session is not open for registration"}
	ErrDeadlinePassed         = &RegistrationRejection{Reason: "registration deadline has passed"}
	ErrFullyBooked            = &RegistrationRejection{Reason: "this session is fully booked"}
	ErrAlreadyStarted         = &RegistrationRejection{Reason: "this session has already started"}
)

// CheckRegistration runs the eligibility guards in order and returns the
// first rejection, or nil when the user may register. The order is load
// bearing: a session that is both full and past its deadline reports the
// deadline, because that guard runs first.
func (s Schedule) CheckRegistration(now time.Time) *RegistrationRejection {
	if s.State != ScheduleScheduled {
		return ErrNotOpenForRegistration
	}
	if s.RegistrationDeadline != nil && now.After(*s.RegistrationDeadline) {
		return ErrDeadlinePassed
	}
	if s.MaxAttendees > 0 && s.AttendeeCount >= s.MaxAttendees {
		return ErrFullyBooked
	}
	if !now.Before(s.StartDatetime) {
		return ErrAlreadyStarted
	}
	return nil
}
