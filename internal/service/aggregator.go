package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
)

// FaultKind labels a class of data-integrity fault found during aggregation.
type FaultKind string

const (
	FaultSDGOutOfRange         FaultKind = "sdg_out_of_range"
	FaultNegativePoints        FaultKind = "negative_points"
	FaultNegativeTotal         FaultKind = "negative_total"
	FaultUnknownEvent          FaultKind = "unknown_event"
	FaultUnknownStatus         FaultKind = "unknown_status"
	FaultDuplicateRegistration FaultKind = "duplicate_registration"
	FaultRatingOutOfRange      FaultKind = "rating_out_of_range"
	FaultNegativeRedemptions   FaultKind = "negative_redemptions"
	FaultRedemptionsOverStock  FaultKind = "redemptions_over_stock"
)

// IntegrityFault describes one skipped or corrected input reference.
type IntegrityFault struct {
	Kind    FaultKind `json:"kind"`
	Subject string    `json:"subject"`
	Detail  string    `json:"detail"`
}

// AggregateResult carries the summaries of one aggregation pass and the faults it recovered from.
type AggregateResult[T any] struct {
	Summaries []T
	Faults    []IntegrityFault
}

type aggregationRecorder interface {
	ObserveAggregation(name string, duration time.Duration)
	RecordIntegrityFault(kind string)
}

// Aggregator computes participation summaries from snapshot collections.
// It never mutates its inputs and never aborts on bad records.
type Aggregator struct {
	logger  *zap.Logger
	metrics aggregationRecorder
}

// NewAggregator constructs an aggregator. metrics may be nil.
func NewAggregator(logger *zap.Logger, metrics aggregationRecorder) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger, metrics: metrics}
}

type faultLog struct {
	agg    *Aggregator
	pass   string
	faults []IntegrityFault
}

func (a *Aggregator) begin(pass string) (*faultLog, func()) {
	start := time.Now()
	log := &faultLog{agg: a, pass: pass}
	return log, func() {
		if a.metrics != nil {
			a.metrics.ObserveAggregation(pass, time.Since(start))
		}
	}
}

func (l *faultLog) add(kind FaultKind, subject, format string, args ...interface{}) {
	fault := IntegrityFault{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
	l.faults = append(l.faults, fault)
	l.agg.logger.Warn("integrity fault",
		zap.String("pass", l.pass),
		zap.String("kind", string(kind)),
		zap.String("subject", subject),
		zap.String("detail", fault.Detail),
	)
	if l.agg.metrics != nil {
		l.agg.metrics.RecordIntegrityFault(string(kind))
	}
}

// SDG summarises participation per goal, in the order of goals.
// A student participates in a goal when at least one of their activities references it.
// An activity contributes its full points to every goal it references.
func (a *Aggregator) SDG(students []models.Student, goals []models.SDGGoal) AggregateResult[models.SDGSummary] {
	faults, done := a.begin("sdg")
	defer done()

	summaries := make([]models.SDGSummary, len(goals))
	index := make(map[int]int, len(goals))
	participants := make([]map[string]struct{}, len(goals))
	byFaculty := make([]map[string]map[string]struct{}, len(goals))
	for i, g := range goals {
		summaries[i] = models.SDGSummary{Number: g.Number, Name: g.Name, Color: g.Color, ParticipantsByFaculty: map[string]int{}}
		index[g.Number] = i
		participants[i] = make(map[string]struct{})
		byFaculty[i] = make(map[string]map[string]struct{})
	}

	for _, student := range students {
		for _, activity := range student.Activities {
			if activity.Points < 0 {
				faults.add(FaultNegativePoints, activity.ID, "activity of %s has %d points", student.ID, activity.Points)
				continue
			}
			seen := make(map[int]struct{}, len(activity.SDGs))
			for _, goal := range activity.SDGs {
				if _, dup := seen[goal]; dup {
					continue
				}
				seen[goal] = struct{}{}
				i, ok := index[goal]
				if !ok || !models.ValidSDG(goal) {
					faults.add(FaultSDGOutOfRange, activity.ID, "activity references goal %d", goal)
					continue
				}
				summaries[i].TotalPoints += activity.Points
				summaries[i].ActivityCount++
				participants[i][student.ID] = struct{}{}
				faculty := facultyLabel(student.Faculty)
				if byFaculty[i][faculty] == nil {
					byFaculty[i][faculty] = make(map[string]struct{})
				}
				byFaculty[i][faculty][student.ID] = struct{}{}
			}
		}
	}

	for i := range summaries {
		summaries[i].Participants = len(participants[i])
		for faculty, ids := range byFaculty[i] {
			summaries[i].ParticipantsByFaculty[faculty] = len(ids)
		}
	}
	return AggregateResult[models.SDGSummary]{Summaries: summaries, Faults: faults.faults}
}

// Faculties summarises engagement per faculty in first-seen order.
func (a *Aggregator) Faculties(students []models.Student) AggregateResult[models.FacultySummary] {
	faults, done := a.begin("faculty")
	defer done()

	summaries := make([]models.FacultySummary, 0)
	index := make(map[string]int)
	for _, student := range students {
		faculty := facultyLabel(student.Faculty)
		i, ok := index[faculty]
		if !ok {
			i = len(summaries)
			index[faculty] = i
			summaries = append(summaries, models.FacultySummary{Faculty: faculty})
		}
		summary := &summaries[i]
		summary.Students++
		summary.Activities += len(student.Activities)
		if student.TotalPoints < 0 {
			faults.add(FaultNegativeTotal, student.ID, "student total is %d", student.TotalPoints)
			continue
		}
		summary.TotalPoints += student.TotalPoints
	}

	for i := range summaries {
		s := &summaries[i]
		s.AveragePoints = ratio(s.TotalPoints, s.Students)
		s.AverageActivities = ratio(s.Activities, s.Students)
	}
	return AggregateResult[models.FacultySummary]{Summaries: summaries, Faults: faults.faults}
}

// Events summarises registrations per event, in catalog order.
// Registered counts every accepted registration, so the attendance rate stays within [0, 1].
func (a *Aggregator) Events(events []models.Event, registrations []models.RegisteredEvent, favorites map[string]int) AggregateResult[models.EventSummary] {
	faults, done := a.begin("event")
	defer done()

	summaries := make([]models.EventSummary, len(events))
	index := make(map[string]int, len(events))
	ratingTotals := make([]float64, len(events))
	for i, e := range events {
		summaries[i] = models.EventSummary{EventID: e.ID, Title: e.Title}
		index[e.ID] = i
	}

	type pair struct{ student, event string }
	seen := make(map[pair]struct{}, len(registrations))
	for _, reg := range registrations {
		i, ok := index[reg.EventID]
		if !ok {
			faults.add(FaultUnknownEvent, reg.ID, "registration references unknown event %q", reg.EventID)
			continue
		}
		key := pair{reg.StudentID, reg.EventID}
		if _, dup := seen[key]; dup {
			faults.add(FaultDuplicateRegistration, reg.ID, "student %s already registered for %s", reg.StudentID, reg.EventID)
			continue
		}
		if !reg.Status.Valid() {
			faults.add(FaultUnknownStatus, reg.ID, "unknown status %q", reg.Status)
			continue
		}
		seen[key] = struct{}{}

		summary := &summaries[i]
		summary.Registered++
		switch reg.Status {
		case models.EventStatusAttended:
			summary.Attended++
		case models.EventStatusCancelled:
			summary.Cancelled++
		}

		if reg.Status != models.EventStatusAttended || reg.Feedback == nil {
			continue
		}
		if !reg.Feedback.Valid() {
			faults.add(FaultRatingOutOfRange, reg.ID, "ratings %v outside %d..%d", reg.Feedback.Ratings(), models.FeedbackRatingMin, models.FeedbackRatingMax)
			continue
		}
		ratingTotals[i] += reg.Feedback.Score()
		summary.FeedbackCount++
	}

	for i := range summaries {
		s := &summaries[i]
		if s.Registered > 0 {
			s.AttendanceRate = float64(s.Attended) / float64(s.Registered)
		}
		if s.FeedbackCount > 0 {
			s.AverageRating = ratingTotals[i] / float64(s.FeedbackCount)
		}
		if n := favorites[s.EventID]; n > 0 {
			s.Favorites = n
		}
	}
	return AggregateResult[models.EventSummary]{Summaries: summaries, Faults: faults.faults}
}

// Rewards summarises redemptions per reward, in catalog order.
func (a *Aggregator) Rewards(rewards []models.Reward, redemptions map[string]int) AggregateResult[models.RewardSummary] {
	faults, done := a.begin("reward")
	defer done()

	summaries := make([]models.RewardSummary, len(rewards))
	for i, r := range rewards {
		count := redemptions[r.ID]
		if count < 0 {
			faults.add(FaultNegativeRedemptions, r.ID, "redemption count is %d", count)
			count = 0
		}
		if r.InitialStock > 0 && count > r.InitialStock {
			faults.add(FaultRedemptionsOverStock, r.ID, "%d redemptions exceed initial stock %d", count, r.InitialStock)
		}
		summaries[i] = models.RewardSummary{
			RewardID:       r.ID,
			Name:           r.Name,
			Category:       r.Category,
			PointCost:      r.PointCost,
			Redemptions:    count,
			RedemptionRate: redemptionRate(count, r.InitialStock),
			InitialStock:   r.InitialStock,
			Stock:          r.Stock,
			PointsSpent:    count * r.PointCost,
		}
	}
	return AggregateResult[models.RewardSummary]{Summaries: summaries, Faults: faults.faults}
}

// RewardCategories pools reward summaries by category in first-seen order.
func (a *Aggregator) RewardCategories(rewards []models.RewardSummary) AggregateResult[models.RewardCategorySummary] {
	faults, done := a.begin("reward_category")
	defer done()

	summaries := make([]models.RewardCategorySummary, 0)
	stock := make([]int, 0)
	index := make(map[string]int)
	for _, r := range rewards {
		i, ok := index[r.Category]
		if !ok {
			i = len(summaries)
			index[r.Category] = i
			summaries = append(summaries, models.RewardCategorySummary{Category: r.Category})
			stock = append(stock, 0)
		}
		summaries[i].Rewards++
		summaries[i].Redemptions += r.Redemptions
		summaries[i].PointsSpent += r.PointsSpent
		if r.InitialStock > 0 {
			stock[i] += r.InitialStock
		}
	}
	for i := range summaries {
		summaries[i].RedemptionRate = redemptionRate(summaries[i].Redemptions, stock[i])
	}
	return AggregateResult[models.RewardCategorySummary]{Summaries: summaries, Faults: faults.faults}
}

// redemptionRate is redemptions over initial stock as a percentage clamped to [0, 100].
func redemptionRate(redemptions, initialStock int) float64 {
	if initialStock <= 0 || redemptions <= 0 {
		return 0
	}
	rate := float64(redemptions) / float64(initialStock) * 100
	if rate > 100 {
		return 100
	}
	return rate
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

const unassignedFaculty = "Unassigned"

func facultyLabel(faculty string) string {
	if faculty == "" {
		return unassignedFaculty
	}
	return faculty
}
