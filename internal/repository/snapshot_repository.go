package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

// SnapshotRepository assembles participation snapshots from SQL tables.
type SnapshotRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

type activityRow struct {
	models.ActivityRecord
	StudentID string `db:"student_id"`
	SDGList   string `db:"sdgs"`
}

type badgeRow struct {
	models.Badge
	StudentID string `db:"student_id"`
}

type eventRow struct {
	models.Event
	SDGList string `db:"sdgs"`
}

type registrationRow struct {
	models.RegisteredEvent
	RatingOverall      sql.NullInt64  `db:"rating_overall"`
	RatingContent      sql.NullInt64  `db:"rating_content"`
	RatingOrganization sql.NullInt64  `db:"rating_organization"`
	RatingVenue        sql.NullInt64  `db:"rating_venue"`
	RatingRelevance    sql.NullInt64  `db:"rating_relevance"`
	Highlights         sql.NullString `db:"highlights"`
	Improvements       sql.NullString `db:"improvements"`
	WouldRecommend     sql.NullBool   `db:"would_recommend"`
}

func (r registrationRow) feedback() *models.EventFeedback {
	if !r.RatingOverall.Valid {
		return nil
	}
	return &models.EventFeedback{
		Overall:        int(r.RatingOverall.Int64),
		Content:        int(r.RatingContent.Int64),
		Organization:   int(r.RatingOrganization.Int64),
		Venue:          int(r.RatingVenue.Int64),
		Relevance:      int(r.RatingRelevance.Int64),
		Highlights:     r.Highlights.String,
		Improvements:   r.Improvements.String,
		WouldRecommend: r.WouldRecommend.Bool,
	}
}

const (
	selectStudents      = `SELECT id, name, faculty, total_points, weekly_points, monthly_points FROM students ORDER BY id`
	selectActivities    = `SELECT id, student_id, title, category, sdgs, points, occurred_at FROM activities ORDER BY student_id, occurred_at, id`
	selectBadges        = `SELECT id, student_id, name, earned_at FROM badges ORDER BY student_id, earned_at, id`
	selectEvents        = `SELECT id, title, sdgs, points, starts_at, location, capacity FROM events ORDER BY starts_at, id`
	selectRegistrations = `SELECT id, student_id, event_id, status, registered_at, rating_overall, rating_content, rating_organization, rating_venue, rating_relevance, highlights, improvements, would_recommend FROM event_registrations ORDER BY student_id, registered_at, id`
	selectRewards       = `SELECT id, name, category, point_cost, initial_stock, stock FROM rewards ORDER BY id`
)

// Snapshot reads every table and returns a freshly built, caller-owned snapshot.
func (r *SnapshotRepository) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, selectStudents); err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}
	index := make(map[string]int, len(students))
	for i := range students {
		index[students[i].ID] = i
	}

	var activities []activityRow
	if err := r.db.SelectContext(ctx, &activities, selectActivities); err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	for _, row := range activities {
		i, ok := index[row.StudentID]
		if !ok {
			continue
		}
		sdgs, err := ParseSDGList(row.SDGList)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", row.ID, err)
		}
		record := row.ActivityRecord
		record.SDGs = sdgs
		students[i].Activities = append(students[i].Activities, record)
	}

	var badges []badgeRow
	if err := r.db.SelectContext(ctx, &badges, selectBadges); err != nil {
		return nil, fmt.Errorf("select badges: %w", err)
	}
	for _, row := range badges {
		if i, ok := index[row.StudentID]; ok {
			students[i].Badges = append(students[i].Badges, row.Badge)
		}
	}

	var eventRows []eventRow
	if err := r.db.SelectContext(ctx, &eventRows, selectEvents); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	events := make([]models.Event, 0, len(eventRows))
	for _, row := range eventRows {
		sdgs, err := ParseSDGList(row.SDGList)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", row.ID, err)
		}
		event := row.Event
		event.SDGs = sdgs
		events = append(events, event)
	}

	var regRows []registrationRow
	if err := r.db.SelectContext(ctx, &regRows, selectRegistrations); err != nil {
		return nil, fmt.Errorf("select registrations: %w", err)
	}
	registrations := make([]models.RegisteredEvent, 0, len(regRows))
	for _, row := range regRows {
		reg := row.RegisteredEvent
		reg.Feedback = row.feedback()
		registrations = append(registrations, reg)
		if i, ok := index[reg.StudentID]; ok {
			students[i].Registrations = append(students[i].Registrations, reg.Clone())
		}
	}

	var rewards []models.Reward
	if err := r.db.SelectContext(ctx, &rewards, selectRewards); err != nil {
		return nil, fmt.Errorf("select rewards: %w", err)
	}

	return &models.Snapshot{
		Students:      students,
		Events:        events,
		Registrations: registrations,
		Rewards:       rewards,
		Goals:         models.SDGGoals(),
		TakenAt:       r.now().UTC(),
	}, nil
}

// DecrementStock takes one unit of a reward out of stock.
func (r *SnapshotRepository) DecrementStock(ctx context.Context, rewardID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE rewards SET stock = stock - 1 WHERE id = ? AND stock > 0`), rewardID)
	if err != nil {
		return fmt.Errorf("decrement reward stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement reward stock: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var stock int
	if err := r.db.GetContext(ctx, &stock, r.db.Rebind(`SELECT stock FROM rewards WHERE id = ?`), rewardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("load reward stock: %w", err)
	}
	return appErrors.ErrOutOfStock
}

// IncrementStock returns one unit of a reward to stock, capped at its initial stock.
func (r *SnapshotRepository) IncrementStock(ctx context.Context, rewardID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE rewards SET stock = stock + 1 WHERE id = ? AND stock < initial_stock`), rewardID)
	if err != nil {
		return fmt.Errorf("increment reward stock: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("increment reward stock: %w", err)
	}
	return nil
}

// IsEmpty reports whether the students table has no rows.
func (r *SnapshotRepository) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students`); err != nil {
		return false, fmt.Errorf("count students: %w", err)
	}
	return count == 0, nil
}

// Seed writes a snapshot into empty tables inside one transaction.
func (r *SnapshotRepository) Seed(ctx context.Context, snapshot *models.Snapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exec := func(query string, args ...interface{}) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		return err
	}

	for _, s := range snapshot.Students {
		if err := exec(`INSERT INTO students (id, name, faculty, total_points, weekly_points, monthly_points) VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.Faculty, s.TotalPoints, s.WeeklyPoints, s.MonthlyPoints); err != nil {
			return fmt.Errorf("seed student %s: %w", s.ID, err)
		}
		for _, a := range s.Activities {
			if err := exec(`INSERT INTO activities (id, student_id, title, category, sdgs, points, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				a.ID, s.ID, a.Title, a.Category, FormatSDGList(a.SDGs), a.Points, a.OccurredAt); err != nil {
				return fmt.Errorf("seed activity %s: %w", a.ID, err)
			}
		}
		for _, b := range s.Badges {
			if err := exec(`INSERT INTO badges (id, student_id, name, earned_at) VALUES (?, ?, ?, ?)`,
				b.ID, s.ID, b.Name, b.EarnedAt); err != nil {
				return fmt.Errorf("seed badge %s: %w", b.ID, err)
			}
		}
	}

	for _, e := range snapshot.Events {
		if err := exec(`INSERT INTO events (id, title, sdgs, points, starts_at, location, capacity) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Title, FormatSDGList(e.SDGs), e.Points, e.StartsAt, e.Location, e.Capacity); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}

	for _, reg := range snapshot.Registrations {
		args := []interface{}{reg.ID, reg.StudentID, reg.EventID, reg.Status, reg.RegisteredAt}
		if fb := reg.Feedback; fb != nil {
			args = append(args, fb.Overall, fb.Content, fb.Organization, fb.Venue, fb.Relevance, fb.Highlights, fb.Improvements, fb.WouldRecommend)
		} else {
			args = append(args, nil, nil, nil, nil, nil, nil, nil, nil)
		}
		if err := exec(`INSERT INTO event_registrations (id, student_id, event_id, status, registered_at, rating_overall, rating_content, rating_organization, rating_venue, rating_relevance, highlights, improvements, would_recommend) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
			return fmt.Errorf("seed registration %s: %w", reg.ID, err)
		}
	}

	for _, rw := range snapshot.Rewards {
		if err := exec(`INSERT INTO rewards (id, name, category, point_cost, initial_stock, stock) VALUES (?, ?, ?, ?, ?, ?)`,
			rw.ID, rw.Name, rw.Category, rw.PointCost, rw.InitialStock, rw.Stock); err != nil {
			return fmt.Errorf("seed reward %s: %w", rw.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// ParseSDGList decodes the comma separated goal numbers stored in sdgs columns.
func ParseSDGList(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid sdg reference %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// FormatSDGList is the inverse of ParseSDGList.
func FormatSDGList(goals []int) string {
	parts := make([]string, len(goals))
	for i, g := range goals {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, ",")
}
