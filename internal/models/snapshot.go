package models

import "time"

// Snapshot is a consistent, caller-owned copy of every record the aggregator reads.
type Snapshot struct {
	Students      []Student         `json:"students"`
	Events        []Event           `json:"events"`
	Registrations []RegisteredEvent `json:"registrations"`
	Rewards       []Reward          `json:"rewards"`
	Goals         []SDGGoal         `json:"goals"`
	TakenAt       time.Time         `json:"taken_at"`
}

// FlattenRegistrations collects the registrations nested under each student.
// The student id on each record is filled from its owner when missing.
func FlattenRegistrations(students []Student) []RegisteredEvent {
	count := 0
	for _, s := range students {
		count += len(s.Registrations)
	}
	out := make([]RegisteredEvent, 0, count)
	for _, s := range students {
		for _, r := range s.Registrations {
			r = r.Clone()
			if r.StudentID == "" {
				r.StudentID = s.ID
			}
			out = append(out, r)
		}
	}
	return out
}

// Clone deep copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{TakenAt: s.TakenAt}
	out.Students = make([]Student, len(s.Students))
	for i, st := range s.Students {
		out.Students[i] = st.Clone()
	}
	out.Events = make([]Event, len(s.Events))
	for i, e := range s.Events {
		e.SDGs = append([]int(nil), e.SDGs...)
		out.Events[i] = e
	}
	out.Registrations = make([]RegisteredEvent, len(s.Registrations))
	for i, r := range s.Registrations {
		out.Registrations[i] = r.Clone()
	}
	out.Rewards = append([]Reward(nil), s.Rewards...)
	out.Goals = append([]SDGGoal(nil), s.Goals...)
	return out
}
