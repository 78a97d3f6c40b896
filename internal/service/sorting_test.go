package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

func TestSortSDGSummaries(t *testing.T) {
	items := []models.SDGSummary{
		{Number: 1, Participants: 2, TotalPoints: 50},
		{Number: 2, Participants: 5, TotalPoints: 10},
		{Number: 3, Participants: 2, TotalPoints: 90},
	}
	require.NoError(t, SortSDGSummaries(items, SortParticipants))
	assert.Equal(t, []int{2, 1, 3}, []int{items[0].Number, items[1].Number, items[2].Number})

	require.NoError(t, SortSDGSummaries(items, SortPoints))
	assert.Equal(t, []int{3, 1, 2}, []int{items[0].Number, items[1].Number, items[2].Number})
}

func TestSortEmptyKeyKeepsOrder(t *testing.T) {
	items := []models.EventSummary{{EventID: "b"}, {EventID: "a"}}
	require.NoError(t, SortEventSummaries(items, ""))
	assert.Equal(t, "b", items[0].EventID)
}

func TestSortUnknownKey(t *testing.T) {
	err := SortRewardSummaries(nil, "color")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	assert.Error(t, SortFacultySummaries(nil, SortRating))
	assert.Error(t, SortSDGSummaries(nil, SortStudents))
}

func TestSortFacultyTieBreaksOnName(t *testing.T) {
	items := []models.FacultySummary{
		{Faculty: "Science", TotalPoints: 100},
		{Faculty: "Arts", TotalPoints: 100},
		{Faculty: "Law", TotalPoints: 300},
	}
	require.NoError(t, SortFacultySummaries(items, SortPoints))
	assert.Equal(t, "Law", items[0].Faculty)
	assert.Equal(t, "Arts", items[1].Faculty)
	assert.Equal(t, "Science", items[2].Faculty)
}

func TestSortRewardsByRate(t *testing.T) {
	items := []models.RewardSummary{
		{RewardID: "w1", RedemptionRate: 20},
		{RewardID: "w2", RedemptionRate: 80},
	}
	require.NoError(t, SortRewardSummaries(items, SortRate))
	assert.Equal(t, "w2", items[0].RewardID)
}
