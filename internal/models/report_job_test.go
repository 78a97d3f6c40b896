package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportTypeTabular(t *testing.T) {
	for _, rt := range []ReportType{ReportTypeSDG, ReportTypeFaculty, ReportTypeEvent, ReportTypeReward} {
		assert.True(t, rt.Tabular(), rt)
	}
	assert.False(t, ReportTypeSummary.Tabular())
	assert.False(t, ReportType("grades").Tabular())
}

func TestReportStatusTerminal(t *testing.T) {
	assert.False(t, ReportStatusQueued.Terminal())
	assert.False(t, ReportStatusProcessing.Terminal())
	assert.True(t, ReportStatusFinished.Terminal())
	assert.True(t, ReportStatusFailed.Terminal())
}

func TestReportJobParamsColumn(t *testing.T) {
	params := ReportJobParams{Format: ReportFormatPDF, Faculty: "Engineering"}
	raw, err := params.Value()
	require.NoError(t, err)

	var fromBytes ReportJobParams
	require.NoError(t, fromBytes.Scan(raw))
	assert.Equal(t, params, fromBytes)

	var fromText ReportJobParams
	require.NoError(t, fromText.Scan(`{"format":"csv"}`))
	assert.Equal(t, ReportJobParams{Format: ReportFormatCSV}, fromText)

	fromNil := ReportJobParams{Format: ReportFormatCSV}
	require.NoError(t, fromNil.Scan(nil))
	assert.Equal(t, ReportJobParams{}, fromNil)

	assert.Error(t, fromNil.Scan(42))
}
