package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/pkg/export"
)

// Insight dimensions.
const (
	DimensionSDG     = "sdg"
	DimensionFaculty = "faculty"
	DimensionEvent   = "event"
	DimensionReward  = "reward"
)

// InsightRule turns a threshold on one summary metric into a recommendation.
// Message may reference {name} and {value}.
type InsightRule struct {
	Dimension  string  `toml:"dimension" validate:"required,oneof=sdg faculty event reward"`
	Metric     string  `toml:"metric" validate:"required"`
	Comparator string  `toml:"comparator" validate:"required,oneof=lt lte gt gte eq"`
	Threshold  float64 `toml:"threshold"`
	Message    string  `toml:"message" validate:"required"`
}

type insightRuleFile struct {
	Rules []InsightRule `toml:"rule" validate:"dive"`
}

// metricValue reads a named metric. ok is false when the metric has no meaningful value,
// such as an attendance rate for an event nobody registered for.
type metricValue func(item interface{}) (name string, value float64, ok bool)

var insightMetrics = map[string]map[string]metricValue{
	DimensionSDG: {
		"participants": sdgMetric(func(s models.SDGSummary) float64 { return float64(s.Participants) }),
		"total_points": sdgMetric(func(s models.SDGSummary) float64 { return float64(s.TotalPoints) }),
		"activities":   sdgMetric(func(s models.SDGSummary) float64 { return float64(s.ActivityCount) }),
	},
	DimensionFaculty: {
		"students":       facultyMetric(func(s models.FacultySummary) (float64, bool) { return float64(s.Students), true }),
		"total_points":   facultyMetric(func(s models.FacultySummary) (float64, bool) { return float64(s.TotalPoints), true }),
		"average_points": facultyMetric(func(s models.FacultySummary) (float64, bool) { return s.AveragePoints, s.Students > 0 }),
	},
	DimensionEvent: {
		"registered":          eventMetric(func(s models.EventSummary) (float64, bool) { return float64(s.Registered), true }),
		"attendance_rate_pct": eventMetric(func(s models.EventSummary) (float64, bool) { return s.AttendanceRate * 100, s.Registered > 0 }),
		"average_rating":      eventMetric(func(s models.EventSummary) (float64, bool) { return s.AverageRating, s.FeedbackCount > 0 }),
		"favorites":           eventMetric(func(s models.EventSummary) (float64, bool) { return float64(s.Favorites), true }),
	},
	DimensionReward: {
		"redemptions":         rewardMetric(func(s models.RewardSummary) (float64, bool) { return float64(s.Redemptions), true }),
		"redemption_rate_pct": rewardMetric(func(s models.RewardSummary) (float64, bool) { return s.RedemptionRate, s.InitialStock > 0 }),
		"stock":               rewardMetric(func(s models.RewardSummary) (float64, bool) { return float64(s.Stock), true }),
	},
}

func sdgMetric(fn func(models.SDGSummary) float64) metricValue {
	return func(item interface{}) (string, float64, bool) {
		s := item.(models.SDGSummary)
		return fmt.Sprintf("SDG %d %s", s.Number, s.Name), fn(s), true
	}
}

func facultyMetric(fn func(models.FacultySummary) (float64, bool)) metricValue {
	return func(item interface{}) (string, float64, bool) {
		s := item.(models.FacultySummary)
		v, ok := fn(s)
		return s.Faculty, v, ok
	}
}

func eventMetric(fn func(models.EventSummary) (float64, bool)) metricValue {
	return func(item interface{}) (string, float64, bool) {
		s := item.(models.EventSummary)
		v, ok := fn(s)
		return s.Title, v, ok
	}
}

func rewardMetric(fn func(models.RewardSummary) (float64, bool)) metricValue {
	return func(item interface{}) (string, float64, bool) {
		s := item.(models.RewardSummary)
		v, ok := fn(s)
		return s.Name, v, ok
	}
}

// DefaultInsightRules returns the built-in recommendation table.
func DefaultInsightRules() []InsightRule {
	return []InsightRule{
		{Dimension: DimensionEvent, Metric: "attendance_rate_pct", Comparator: "lt", Threshold: 70,
			Message: "{name} converted only {value}% of registrations into attendance. Send reminders closer to the date."},
		{Dimension: DimensionReward, Metric: "redemption_rate_pct", Comparator: "gte", Threshold: 80,
			Message: "{name} has reached {value}% redemption. Restock before it runs out."},
		{Dimension: DimensionReward, Metric: "stock", Comparator: "eq", Threshold: 0,
			Message: "{name} is out of stock."},
		{Dimension: DimensionSDG, Metric: "participants", Comparator: "eq", Threshold: 0,
			Message: "{name} has no participants. Consider events that target it."},
	}
}

// LoadInsightRules reads a TOML rule table. An empty path yields DefaultInsightRules.
func LoadInsightRules(path string) ([]InsightRule, error) {
	if path == "" {
		return DefaultInsightRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read insight rules: %w", err)
	}
	return ParseInsightRules(raw)
}

// ParseInsightRules decodes and validates a TOML rule table.
func ParseInsightRules(raw []byte) ([]InsightRule, error) {
	var file insightRuleFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode insight rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("insight rules file defines no rules")
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid insight rule: %w", err)
	}
	for i, rule := range file.Rules {
		if _, ok := insightMetrics[rule.Dimension][rule.Metric]; !ok {
			return nil, fmt.Errorf("insight rule %d: unknown metric %q for dimension %q", i+1, rule.Metric, rule.Dimension)
		}
	}
	return file.Rules, nil
}

// EvaluateInsights applies rules in order and returns one recommendation per matching item.
func EvaluateInsights(rules []InsightRule, data ReportData) []string {
	out := make([]string, 0)
	for _, rule := range rules {
		metric, ok := insightMetrics[rule.Dimension][rule.Metric]
		if !ok {
			continue
		}
		for _, item := range data.items(rule.Dimension) {
			name, value, ok := metric(item)
			if !ok || !compare(rule.Comparator, value, rule.Threshold) {
				continue
			}
			out = append(out, strings.NewReplacer(
				"{name}", name,
				"{value}", export.FormatDecimal(value),
			).Replace(rule.Message))
		}
	}
	return out
}

func compare(comparator string, value, threshold float64) bool {
	switch comparator {
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "eq":
		return value == threshold
	default:
		return false
	}
}
