package export

import (
	"encoding/csv"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensing-garden/backend/internal/domain"
)

func parseCSV(t *testing.T, content string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(content))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRender_EmptyInput(t *testing.T) {
	header, rows, err := Render(nil, domain.TableDetection)
	require.NoError(t, err)
	assert.Equal(t, "", header)
	assert.Nil(t, rows)

	content, err := RenderComplete(nil, domain.TableDetection)
	require.NoError(t, err)
	assert.Equal(t, "", content)
}

func TestRender_HeaderOrder(t *testing.T) {
	items := []domain.Record{
		mustRecord(t, `{"zz_custom": 1, "device_id": "d", "timestamp": "t", "aa_custom": 2}`),
		mustRecord(t, `{"device_id": "d2", "family": "F"}`),
	}

	header, rows, err := Render(items, domain.TableDetection)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Priority columns present come first in fixed order, the rest sorted.
	assert.Equal(t, "device_id,timestamp,family,aa_custom,zz_custom", header)
}

func TestRender_HeaderPermutationInvariant(t *testing.T) {
	a := mustRecord(t, `{"device_id": "1", "temperature": 20, "custom": "x"}`)
	b := mustRecord(t, `{"device_id": "2", "family": "F", "humidity": 50}`)
	c := mustRecord(t, `{"device_id": "3", "bounding_box": [1, 2, 3, 4]}`)

	orders := [][]domain.Record{
		{a, b, c}, {c, b, a}, {b, a, c}, {c, a, b},
	}

	var want string
	for i, items := range orders {
		header, _, err := Render(items, domain.TableDetection)
		require.NoError(t, err)
		if i == 0 {
			want = header
			continue
		}
		assert.Equal(t, want, header)
	}
}

func TestRender_MissingColumnsAreEmpty(t *testing.T) {
	items := []domain.Record{
		mustRecord(t, `{"device_id": "d1", "family": "F1"}`),
		mustRecord(t, `{"device_id": "d2"}`),
	}

	content, err := RenderComplete(items, domain.TableClassification)
	require.NoError(t, err)

	rows := parseCSV(t, content)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"device_id", "family"}, rows[0])
	assert.Equal(t, []string{"d1", "F1"}, rows[1])
	assert.Equal(t, []string{"d2", ""}, rows[2])
}

func TestRender_QuotingSurvivesReparse(t *testing.T) {
	items := []domain.Record{
		mustRecord(t, `{"device_id": "d,1", "name": "say \"hi\"", "description": "line1\nline2"}`),
	}

	content, err := RenderComplete(items, domain.TableDevice)
	require.NoError(t, err)

	rows := parseCSV(t, content)
	require.Len(t, rows, 2)
	assert.Equal(t, "d,1", rows[1][0])
	assert.Equal(t, `say "hi"`, rows[1][1])
	assert.Equal(t, "line1\nline2", rows[1][2])
}

func TestRender_RoundTripShape(t *testing.T) {
	items := []domain.Record{
		mustRecord(t, `{"device_id": "d1", "timestamp": "2023-07-15T10:30:00Z", "bounding_box": [1,2,3,4]}`),
		mustRecord(t, `{"device_id": "d2", "metadata": {"a": 1}}`),
		mustRecord(t, `{"device_id": "d3", "family": "F", "extra": {"deep": [1,2]}}`),
	}

	content, err := RenderComplete(items, domain.TableDetection)
	require.NoError(t, err)

	rows := parseCSV(t, content)
	require.Len(t, rows, len(items)+1)
	for _, row := range rows[1:] {
		assert.Len(t, row, len(rows[0]))
	}
}

func TestNeutralizeFormula(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"formula", `=cmd|'/c calc.exe'!A1`, `'=cmd|'/c calc.exe'!A1`},
		{"plus prefix", "+SUM(A1)", "'+SUM(A1)"},
		{"at prefix", "@cmd", "'@cmd"},
		{"minus prefix text", "-DANGER()", "'-DANGER()"},
		{"negative number untouched", "-74.006", "-74.006"},
		{"positive number untouched", "+0.5", "+0.5"},
		{"negative integer untouched", "-67", "-67"},
		{"plain text untouched", "hello", "hello"},
		{"empty untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, neutralizeFormula(tt.in))
		})
	}
}

func TestRender_FormulaInjectionNeutralized(t *testing.T) {
	items := []domain.Record{
		mustRecord(t, `{"device_id": "=cmd|'/c calc.exe'!A1", "location": {"long": -74.006}}`),
	}

	content, err := RenderComplete(items, domain.TableDetection)
	require.NoError(t, err)

	rows := parseCSV(t, content)
	require.Len(t, rows, 2)
	for _, cell := range rows[1] {
		if cell == "" {
			continue
		}
		assert.NotEqual(t, byte('='), cell[0], "formula trigger survived: %q", cell)
	}
	assert.Contains(t, rows[1], "-74.006", "numeric cells must not be mangled")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t,
		"my_file_with_spaces___special_chars_.csv",
		SanitizeFilename("my file with spaces & special chars!.csv"))
	assert.Equal(t, "already-safe_1.2.csv", SanitizeFilename("already-safe_1.2.csv"))
	assert.Equal(t, ".._________", SanitizeFilename(`../\:*?"<>|`))
}

func TestDefaultFilename(t *testing.T) {
	at := time.Date(2023, 7, 15, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "sensing_garden_detections_20230715_103000.csv",
		DefaultFilename(domain.TableDetection, at))
	assert.Equal(t, "sensing_garden_environmental_readings_20230715_103000.csv",
		DefaultFilename(domain.TableEnvironmental, at))

	pattern := regexp.MustCompile(`^sensing_garden_videos_\d{8}_\d{6}\.csv$`)
	assert.Regexp(t, pattern, DefaultFilename(domain.TableVideo, time.Now()))
}
