package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/pkg/anonymize"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

const maxLeaderboardLimit = 100

type leaderboardOptOut interface {
	LeaderboardOptOut(ctx context.Context, userID string) bool
}

// PointsTotals are a student's points over the tracked periods.
type PointsTotals struct {
	Total   int `json:"total"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

// PointsService derives point totals and the leaderboard.
type PointsService struct {
	source       SnapshotSource
	optOut       leaderboardOptOut
	defaultLimit int
	logger       *zap.Logger
	now          func() time.Time
}

// NewPointsService constructs the service. optOut may be nil.
func NewPointsService(source SnapshotSource, optOut leaderboardOptOut, defaultLimit int, logger *zap.Logger) *PointsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &PointsService{source: source, optOut: optOut, defaultLimit: defaultLimit, logger: logger, now: time.Now}
}

// Recalculate sums a student's activity points overall, since Monday 00:00 UTC of the
// week containing now, and since the first of now's month. Negative points are skipped.
func (s *PointsService) Recalculate(student models.Student, now time.Time) PointsTotals {
	weekStart, monthStart := periodStarts(now)
	var totals PointsTotals
	for _, a := range student.Activities {
		if a.Points < 0 {
			s.logger.Warn("skipping negative activity points",
				zap.String("student_id", student.ID), zap.String("activity_id", a.ID), zap.Int("points", a.Points))
			continue
		}
		totals.Total += a.Points
		at := a.OccurredAt.UTC()
		if !at.Before(weekStart) {
			totals.Weekly += a.Points
		}
		if !at.Before(monthStart) {
			totals.Monthly += a.Points
		}
	}
	return totals
}

func periodStarts(now time.Time) (week, month time.Time) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	week = day.AddDate(0, 0, -offset)
	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return week, month
}

// ValidPeriod reports whether p names a leaderboard period.
func ValidPeriod(p models.LeaderboardPeriod) bool {
	switch p {
	case models.PeriodTotal, models.PeriodWeekly, models.PeriodMonthly:
		return true
	default:
		return false
	}
}

// Leaderboard ranks students by points earned in period. Equal points share a rank and are
// listed by student id. Names are replaced with pseudonyms when anonymize is set or the
// student opted out of leaderboard visibility.
func (s *PointsService) Leaderboard(ctx context.Context, period models.LeaderboardPeriod, anonymizeNames bool, limit int) ([]models.LeaderboardEntry, error) {
	if period == "" {
		period = models.PeriodTotal
	}
	if !ValidPeriod(period) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be total, weekly or monthly")
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load participation records")
	}

	now := s.now()
	type scored struct {
		student models.Student
		points  int
	}
	rows := make([]scored, 0, len(snapshot.Students))
	for _, st := range snapshot.Students {
		totals := s.Recalculate(st, now)
		points := totals.Total
		switch period {
		case models.PeriodWeekly:
			points = totals.Weekly
		case models.PeriodMonthly:
			points = totals.Monthly
		}
		rows = append(rows, scored{student: st, points: points})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].points != rows[j].points {
			return rows[i].points > rows[j].points
		}
		return rows[i].student.ID < rows[j].student.ID
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	rank := 0
	for i, row := range rows {
		if i == 0 || row.points != rows[i-1].points {
			rank = i + 1
		}
		hidden := anonymizeNames || (s.optOut != nil && s.optOut.LeaderboardOptOut(ctx, row.student.ID))
		entry := models.LeaderboardEntry{
			Rank:        rank,
			DisplayName: anonymize.DisplayName(row.student.ID, hidden, row.student.Name),
			Faculty:     row.student.Faculty,
			Points:      row.points,
			Badges:      len(row.student.Badges),
		}
		if !hidden {
			entry.StudentID = row.student.ID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
