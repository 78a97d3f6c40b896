package models

import "time"

// ActivityCategory classifies how points were earned.
type ActivityCategory string

const (
	ActivityCoursework ActivityCategory = "coursework"
	ActivitySociety    ActivityCategory = "society"
	ActivityEvent      ActivityCategory = "event"
)

// Valid reports whether the category is one of the known values.
func (c ActivityCategory) Valid() bool {
	switch c {
	case ActivityCoursework, ActivitySociety, ActivityEvent:
		return true
	default:
		return false
	}
}

// Student is a participant together with the records attached to them.
type Student struct {
	ID            string            `json:"id" db:"id"`
	Name          string            `json:"name" db:"name"`
	Faculty       string            `json:"faculty" db:"faculty"`
	TotalPoints   int               `json:"total_points" db:"total_points"`
	WeeklyPoints  int               `json:"weekly_points" db:"weekly_points"`
	MonthlyPoints int               `json:"monthly_points" db:"monthly_points"`
	Activities    []ActivityRecord  `json:"activities" db:"-"`
	Registrations []RegisteredEvent `json:"registrations" db:"-"`
	Badges        []Badge           `json:"badges" db:"-"`
}

// ActivityRecord is a single point-earning activity tagged with SDG goals.
type ActivityRecord struct {
	ID         string           `json:"id" db:"id"`
	Title      string           `json:"title" db:"title"`
	Category   ActivityCategory `json:"category" db:"category"`
	SDGs       []int            `json:"sdgs" db:"-"`
	Points     int              `json:"points" db:"points"`
	OccurredAt time.Time        `json:"occurred_at" db:"occurred_at"`
}

// Badge is an achievement awarded to a student.
type Badge struct {
	ID       string    `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
}

// Clone returns a deep copy so callers can aggregate without sharing slices.
func (s Student) Clone() Student {
	out := s
	if s.Activities != nil {
		out.Activities = make([]ActivityRecord, len(s.Activities))
		for i, a := range s.Activities {
			a.SDGs = append([]int(nil), a.SDGs...)
			out.Activities[i] = a
		}
	}
	if s.Registrations != nil {
		out.Registrations = make([]RegisteredEvent, len(s.Registrations))
		for i, r := range s.Registrations {
			out.Registrations[i] = r.Clone()
		}
	}
	if s.Badges != nil {
		out.Badges = append([]Badge(nil), s.Badges...)
	}
	return out
}
