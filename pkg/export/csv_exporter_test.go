package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"goal", "name", "participants"},
		Rows: []map[string]string{
			{"goal": "13", "name": "Climate Action", "participants": "2"},
			{"goal": "16", "name": "Peace, Justice and Strong Institutions", "participants": "0"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	expected := "goal,name,participants\n" +
		"13,Climate Action,2\n" +
		"16,\"Peace, Justice and Strong Institutions\",0\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVExporterMissingColumnsRenderEmpty(t *testing.T) {
	data := Dataset{
		Headers: []string{"a", "b"},
		Rows:    []map[string]string{{"b": "x"}},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n,x\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.ErrorIs(t, err, ErrNoColumns)
}

func TestCSVExporterEscapesQuotesAndDelimiter(t *testing.T) {
	data := Dataset{
		Headers: []string{"title"},
		Rows:    []map[string]string{{"title": `Say "hi"; now`}},
	}
	out, err := NewCSVExporterWithDelimiter(';').Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(out, []byte("\n")))

	reader := csv.NewReader(strings.NewReader(string(out)))
	reader.Comma = ';'
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `Say "hi"; now`, records[1][0])
}

func TestCSVExporterQuotesOnlyDelimiterQuoteAndLineBreak(t *testing.T) {
	data := Dataset{
		Headers: []string{"name", "title", "note"},
		Rows: []map[string]string{
			{"name": " Leading space", "title": `\.`, "note": "\ttabbed"},
			{"name": "multi\nline", "title": `say "hi"`, "note": "a,b"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	expected := "name,title,note\n" +
		" Leading space,\\.,\ttabbed\n" +
		"\"multi\nline\",\"say \"\"hi\"\"\",\"a,b\"\n"
	assert.Equal(t, expected, string(out))

	reader := csv.NewReader(strings.NewReader(string(out)))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"multi\nline", `say "hi"`, "a,b"}, records[2])
}

func TestCSVExporterWriteStreams(t *testing.T) {
	var sb strings.Builder
	data := Dataset{Headers: []string{"faculty", "students"}, Rows: []map[string]string{{"faculty": "Engineering", "students": "3"}}}
	require.NoError(t, NewCSVExporter().Write(&sb, data))
	assert.Equal(t, "faculty,students\nEngineering,3\n", sb.String())
	assert.Equal(t, []string{"Engineering", "3"}, data.Record(0))
}

func TestFormatDecimal(t *testing.T) {
	cases := map[float64]string{
		0:        "0.0",
		70:       "70.0",
		66.66666: "66.7",
		-0.01:    "0.0",
		4.25:     "4.3",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDecimal(in), "input %v", in)
	}
	assert.Equal(t, "45.5", FormatPercent(0.455))
	assert.Equal(t, "12", FormatCount(12))
}
