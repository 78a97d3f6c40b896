package models

import "time"

// Event is a catalogued activity students can register for.
type Event struct {
	ID       string    `json:"id" db:"id"`
	Title    string    `json:"title" db:"title"`
	SDGs     []int     `json:"sdgs" db:"-"`
	Points   int       `json:"points" db:"points"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	Location string    `json:"location" db:"location"`
	Capacity int       `json:"capacity" db:"capacity"`
}

// EventStatus captures the registration lifecycle.
type EventStatus string

const (
	EventStatusRegistered EventStatus = "registered"
	EventStatusAttended   EventStatus = "attended"
	EventStatusCancelled  EventStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusRegistered, EventStatusAttended, EventStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s EventStatus) Terminal() bool {
	return s == EventStatusAttended || s == EventStatusCancelled
}

// CanTransition reports whether a registration may move from s to next.
// Only registered moves, and only into one of the terminal states.
func (s EventStatus) CanTransition(next EventStatus) bool {
	return s == EventStatusRegistered && next.Terminal()
}

// RegisteredEvent links a student to an event.
type RegisteredEvent struct {
	ID           string         `json:"id" db:"id"`
	StudentID    string         `json:"student_id" db:"student_id"`
	EventID      string         `json:"event_id" db:"event_id"`
	Status       EventStatus    `json:"status" db:"status"`
	Feedback     *EventFeedback `json:"feedback,omitempty" db:"-"`
	RegisteredAt time.Time      `json:"registered_at" db:"registered_at"`
}

// Clone returns a copy that does not share the feedback pointer.
func (r RegisteredEvent) Clone() RegisteredEvent {
	if r.Feedback != nil {
		fb := *r.Feedback
		r.Feedback = &fb
	}
	return r
}

// FeedbackRatingMin and FeedbackRatingMax bound each feedback rating.
const (
	FeedbackRatingMin = 1
	FeedbackRatingMax = 5
)

// EventFeedback is left by a student after attending an event.
type EventFeedback struct {
	Overall        int    `json:"overall"`
	Content        int    `json:"content"`
	Organization   int    `json:"organization"`
	Venue          int    `json:"venue"`
	Relevance      int    `json:"relevance"`
	Highlights     string `json:"highlights,omitempty"`
	Improvements   string `json:"improvements,omitempty"`
	WouldRecommend bool   `json:"would_recommend"`
}

// Ratings lists the five numeric ratings in a stable order.
func (f EventFeedback) Ratings() [5]int {
	return [5]int{f.Overall, f.Content, f.Organization, f.Venue, f.Relevance}
}

// Valid reports whether every rating is within 1..5.
func (f EventFeedback) Valid() bool {
	for _, r := range f.Ratings() {
		if r < FeedbackRatingMin || r > FeedbackRatingMax {
			return false
		}
	}
	return true
}

// Score is the mean of the five ratings.
func (f EventFeedback) Score() float64 {
	total := 0
	ratings := f.Ratings()
	for _, r := range ratings {
		total += r
	}
	return float64(total) / float64(len(ratings))
}
