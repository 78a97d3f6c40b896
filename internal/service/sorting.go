package service

import (
	"sort"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

// Sort keys accepted by the analytics endpoints. Every key sorts descending.
const (
	SortParticipants = "participants"
	SortPoints       = "points"
	SortActivities   = "activities"
	SortStudents     = "students"
	SortAverage      = "average"
	SortAttendance   = "attendance"
	SortRegistered   = "registered"
	SortRating       = "rating"
	SortFavorites    = "favorites"
	SortRedemptions  = "redemptions"
	SortRate         = "rate"
)

func unsupportedSort(by string) error {
	return appErrors.Clone(appErrors.ErrValidation, "unsupported sort key: "+by)
}

// SortSDGSummaries orders summaries in place. An empty key keeps goal order.
func SortSDGSummaries(items []models.SDGSummary, by string) error {
	var value func(models.SDGSummary) float64
	switch by {
	case "":
		return nil
	case SortParticipants:
		value = func(s models.SDGSummary) float64 { return float64(s.Participants) }
	case SortPoints:
		value = func(s models.SDGSummary) float64 { return float64(s.TotalPoints) }
	case SortActivities:
		value = func(s models.SDGSummary) float64 { return float64(s.ActivityCount) }
	default:
		return unsupportedSort(by)
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, vj := value(items[i]), value(items[j])
		if vi != vj {
			return vi > vj
		}
		return items[i].Number < items[j].Number
	})
	return nil
}

// SortFacultySummaries orders summaries in place. Ties break on faculty name.
func SortFacultySummaries(items []models.FacultySummary, by string) error {
	var value func(models.FacultySummary) float64
	switch by {
	case "":
		return nil
	case SortPoints:
		value = func(s models.FacultySummary) float64 { return float64(s.TotalPoints) }
	case SortStudents:
		value = func(s models.FacultySummary) float64 { return float64(s.Students) }
	case SortAverage:
		value = func(s models.FacultySummary) float64 { return s.AveragePoints }
	case SortActivities:
		value = func(s models.FacultySummary) float64 { return float64(s.Activities) }
	default:
		return unsupportedSort(by)
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, vj := value(items[i]), value(items[j])
		if vi != vj {
			return vi > vj
		}
		return items[i].Faculty < items[j].Faculty
	})
	return nil
}

// SortEventSummaries orders summaries in place. Ties break on event id.
func SortEventSummaries(items []models.EventSummary, by string) error {
	var value func(models.EventSummary) float64
	switch by {
	case "":
		return nil
	case SortAttendance:
		value = func(s models.EventSummary) float64 { return s.AttendanceRate }
	case SortRegistered:
		value = func(s models.EventSummary) float64 { return float64(s.Registered) }
	case SortRating:
		value = func(s models.EventSummary) float64 { return s.AverageRating }
	case SortFavorites:
		value = func(s models.EventSummary) float64 { return float64(s.Favorites) }
	default:
		return unsupportedSort(by)
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, vj := value(items[i]), value(items[j])
		if vi != vj {
			return vi > vj
		}
		return items[i].EventID < items[j].EventID
	})
	return nil
}

// SortRewardSummaries orders summaries in place. Ties break on reward id.
func SortRewardSummaries(items []models.RewardSummary, by string) error {
	var value func(models.RewardSummary) float64
	switch by {
	case "":
		return nil
	case SortRedemptions:
		value = func(s models.RewardSummary) float64 { return float64(s.Redemptions) }
	case SortRate:
		value = func(s models.RewardSummary) float64 { return s.RedemptionRate }
	case SortPoints:
		value = func(s models.RewardSummary) float64 { return float64(s.PointsSpent) }
	default:
		return unsupportedSort(by)
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, vj := value(items[i]), value(items[j])
		if vi != vj {
			return vi > vj
		}
		return items[i].RewardID < items[j].RewardID
	})
	return nil
}
