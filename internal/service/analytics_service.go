package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

// SnapshotSource yields a caller-owned copy of every participation record.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

type favoriteCounter interface {
	FavoriteCounts(ctx context.Context, kind FavoriteKind, itemIDs []string) (map[string]int, error)
}

type redemptionCounter interface {
	Counts(ctx context.Context, rewardIDs []string) (map[string]int, error)
}

// AnalyticsService serves aggregated participation analytics with cache integration.
type AnalyticsService struct {
	source      SnapshotSource
	sourceName  string
	aggregator  *Aggregator
	favorites   favoriteCounter
	redemptions redemptionCounter
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// AnalyticsDeps groups the collaborators of AnalyticsService.
type AnalyticsDeps struct {
	Source      SnapshotSource
	SourceName  string
	Aggregator  *Aggregator
	Favorites   favoriteCounter
	Redemptions redemptionCounter
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(deps AnalyticsDeps) *AnalyticsService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Aggregator == nil {
		deps.Aggregator = NewAggregator(deps.Logger, deps.Metrics)
	}
	if deps.SourceName == "" {
		deps.SourceName = "memory"
	}
	return &AnalyticsService{
		source:      deps.Source,
		sourceName:  deps.SourceName,
		aggregator:  deps.Aggregator,
		favorites:   deps.Favorites,
		redemptions: deps.Redemptions,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// SDG returns per-goal summaries. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) SDG(ctx context.Context, sortBy string) ([]models.SDGSummary, bool, error) {
	if err := SortSDGSummaries(nil, sortBy); err != nil {
		return nil, false, err
	}
	return cached(ctx, s, makeAnalyticsCacheKey("sdg", sortBy), func(ctx context.Context) ([]models.SDGSummary, error) {
		snapshot, err := s.snapshot(ctx, "")
		if err != nil {
			return nil, err
		}
		result := s.aggregator.SDG(snapshot.Students, snapshot.Goals)
		return result.Summaries, SortSDGSummaries(result.Summaries, sortBy)
	})
}

// Faculties returns per-faculty summaries.
func (s *AnalyticsService) Faculties(ctx context.Context, sortBy string) ([]models.FacultySummary, bool, error) {
	if err := SortFacultySummaries(nil, sortBy); err != nil {
		return nil, false, err
	}
	return cached(ctx, s, makeAnalyticsCacheKey("faculties", sortBy), func(ctx context.Context) ([]models.FacultySummary, error) {
		snapshot, err := s.snapshot(ctx, "")
		if err != nil {
			return nil, err
		}
		result := s.aggregator.Faculties(snapshot.Students)
		return result.Summaries, SortFacultySummaries(result.Summaries, sortBy)
	})
}

// Events returns per-event summaries including favorite counts.
func (s *AnalyticsService) Events(ctx context.Context, sortBy string) ([]models.EventSummary, bool, error) {
	if err := SortEventSummaries(nil, sortBy); err != nil {
		return nil, false, err
	}
	return cached(ctx, s, makeAnalyticsCacheKey("events", sortBy), func(ctx context.Context) ([]models.EventSummary, error) {
		snapshot, err := s.snapshot(ctx, "")
		if err != nil {
			return nil, err
		}
		summaries, err := s.events(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		return summaries, SortEventSummaries(summaries, sortBy)
	})
}

// Rewards returns per-reward summaries.
func (s *AnalyticsService) Rewards(ctx context.Context, sortBy string) ([]models.RewardSummary, bool, error) {
	if err := SortRewardSummaries(nil, sortBy); err != nil {
		return nil, false, err
	}
	return cached(ctx, s, makeAnalyticsCacheKey("rewards", sortBy), func(ctx context.Context) ([]models.RewardSummary, error) {
		snapshot, err := s.snapshot(ctx, "")
		if err != nil {
			return nil, err
		}
		summaries, err := s.rewards(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		return summaries, SortRewardSummaries(summaries, sortBy)
	})
}

// RewardCategories returns redemption totals pooled by reward category.
func (s *AnalyticsService) RewardCategories(ctx context.Context) ([]models.RewardCategorySummary, bool, error) {
	return cached(ctx, s, makeAnalyticsCacheKey("rewards", "categories"), func(ctx context.Context) ([]models.RewardCategorySummary, error) {
		snapshot, err := s.snapshot(ctx, "")
		if err != nil {
			return nil, err
		}
		rewards, err := s.rewards(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		return s.aggregator.RewardCategories(rewards).Summaries, nil
	})
}

// Overview returns programme-wide totals.
func (s *AnalyticsService) Overview(ctx context.Context) (models.AnalyticsOverview, bool, error) {
	return cached(ctx, s, makeAnalyticsCacheKey("overview"), func(ctx context.Context) (models.AnalyticsOverview, error) {
		data, err := s.ReportData(ctx, "")
		if err != nil {
			return models.AnalyticsOverview{}, err
		}
		return data.Overview, nil
	})
}

// ReportData computes every aggregate from one fresh snapshot, optionally limited to one faculty.
// It bypasses the cache so exports always reflect the current records.
func (s *AnalyticsService) ReportData(ctx context.Context, faculty string) (ReportData, error) {
	snapshot, err := s.snapshot(ctx, faculty)
	if err != nil {
		return ReportData{}, err
	}

	sdg := s.aggregator.SDG(snapshot.Students, snapshot.Goals)
	faculties := s.aggregator.Faculties(snapshot.Students)
	eventFavorites, err := s.favoriteCounts(ctx, snapshot)
	if err != nil {
		return ReportData{}, err
	}
	events := s.aggregator.Events(snapshot.Events, snapshot.Registrations, eventFavorites)
	redemptions, err := s.redemptionCounts(ctx, snapshot)
	if err != nil {
		return ReportData{}, err
	}
	rewards := s.aggregator.Rewards(snapshot.Rewards, redemptions)
	categories := s.aggregator.RewardCategories(rewards.Summaries)

	faults := make([]IntegrityFault, 0, len(sdg.Faults)+len(faculties.Faults)+len(events.Faults)+len(rewards.Faults))
	faults = append(faults, sdg.Faults...)
	faults = append(faults, faculties.Faults...)
	faults = append(faults, events.Faults...)
	faults = append(faults, rewards.Faults...)

	data := ReportData{
		Faculty:     faculty,
		SDG:         sdg.Summaries,
		Faculties:   faculties.Summaries,
		Events:      events.Summaries,
		Rewards:     rewards.Summaries,
		Categories:  categories.Summaries,
		Faults:      faults,
		GeneratedAt: snapshot.TakenAt,
	}
	data.Overview = buildOverview(snapshot, data)
	return data, nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

// Invalidate drops every cached aggregate.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, AnalyticsCachePattern)
}

func (s *AnalyticsService) snapshot(ctx context.Context, faculty string) (*models.Snapshot, error) {
	if s.source == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "no participation data source configured")
	}
	start := time.Now()
	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load participation records")
	}
	s.metrics.ObserveSnapshotLoad(s.sourceName, time.Since(start))
	if faculty != "" {
		snapshot = filterByFaculty(snapshot, faculty)
	}
	return snapshot, nil
}

func (s *AnalyticsService) events(ctx context.Context, snapshot *models.Snapshot) ([]models.EventSummary, error) {
	favorites, err := s.favoriteCounts(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Events(snapshot.Events, snapshot.Registrations, favorites).Summaries, nil
}

func (s *AnalyticsService) rewards(ctx context.Context, snapshot *models.Snapshot) ([]models.RewardSummary, error) {
	redemptions, err := s.redemptionCounts(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Rewards(snapshot.Rewards, redemptions).Summaries, nil
}

func (s *AnalyticsService) favoriteCounts(ctx context.Context, snapshot *models.Snapshot) (map[string]int, error) {
	if s.favorites == nil {
		return nil, nil
	}
	ids := make([]string, len(snapshot.Events))
	for i, e := range snapshot.Events {
		ids[i] = e.ID
	}
	counts, err := s.favorites.FavoriteCounts(ctx, FavoriteEvent, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count favorites")
	}
	return counts, nil
}

func (s *AnalyticsService) redemptionCounts(ctx context.Context, snapshot *models.Snapshot) (map[string]int, error) {
	if s.redemptions == nil {
		return nil, nil
	}
	ids := make([]string, len(snapshot.Rewards))
	for i, r := range snapshot.Rewards {
		ids[i] = r.ID
	}
	counts, err := s.redemptions.Counts(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count redemptions")
	}
	return counts, nil
}

func cached[T any](ctx context.Context, s *AnalyticsService, key string, load func(context.Context) (T, error)) (T, bool, error) {
	return Remember(ctx, s.cache, key, 0, load)
}

func buildOverview(snapshot *models.Snapshot, data ReportData) models.AnalyticsOverview {
	overview := models.AnalyticsOverview{
		Students:        len(snapshot.Students),
		Faculties:       len(data.Faculties),
		Events:          len(snapshot.Events),
		IntegrityFaults: len(data.Faults),
		GeneratedAt:     snapshot.TakenAt,
	}
	for _, f := range data.Faculties {
		overview.TotalPoints += f.TotalPoints
		overview.Activities += f.Activities
	}
	for _, st := range snapshot.Students {
		overview.BadgesAwarded += len(st.Badges)
	}
	for _, e := range data.Events {
		overview.Registrations += e.Registered
		overview.Attended += e.Attended
	}
	if overview.Registrations > 0 {
		overview.AverageAttendanceRate = float64(overview.Attended) / float64(overview.Registrations)
	}
	for _, r := range data.Rewards {
		overview.Redemptions += r.Redemptions
	}
	for _, g := range data.SDG {
		if g.Participants > 0 {
			overview.ActiveGoals++
		}
	}
	return overview
}

// filterByFaculty keeps the students of one faculty, their registrations and
// the events they registered for. Rewards stay programme-wide because
// redemptions are not recorded per student.
func filterByFaculty(snapshot *models.Snapshot, faculty string) *models.Snapshot {
	keep := make(map[string]struct{})
	students := make([]models.Student, 0, len(snapshot.Students))
	for _, st := range snapshot.Students {
		if strings.EqualFold(st.Faculty, faculty) {
			students = append(students, st)
			keep[st.ID] = struct{}{}
		}
	}
	registrations := make([]models.RegisteredEvent, 0, len(snapshot.Registrations))
	registered := make(map[string]struct{})
	for _, r := range snapshot.Registrations {
		if _, ok := keep[r.StudentID]; ok {
			registrations = append(registrations, r)
			registered[r.EventID] = struct{}{}
		}
	}
	events := make([]models.Event, 0, len(registered))
	for _, e := range snapshot.Events {
		if _, ok := registered[e.ID]; ok {
			events = append(events, e)
		}
	}
	snapshot.Students = students
	snapshot.Registrations = registrations
	snapshot.Events = events
	return snapshot
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
