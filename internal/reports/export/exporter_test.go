package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	e := NewCSVExporter(&buf, DefaultCSVOptions())

	require.NoError(t, e.WriteHeader([]string{"rank", "post_title", "comment_1"}))
	require.NoError(t, e.WriteHeader([]string{"ignored"}))
	require.NoError(t, e.WriteRows([][]any{
		{1, "First, with comma", "line one\nline two"},
		{2, "Second", nil},
	}))
	require.NoError(t, e.Flush())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"rank", "post_title", "comment_1"}, records[0])
	assert.Equal(t, []string{"1", "First, with comma", "line one\nline two"}, records[1])
	assert.Equal(t, "", records[2][2])
}

func TestExcelExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	e := NewExcelExporter(DefaultExcelOptions())
	require.NoError(t, e.WriteTable([]string{"rank", "post_title"}, [][]any{
		{1, "First"},
		{2, "Second"},
	}))
	require.NoError(t, e.SaveAs(path))
	require.NoError(t, e.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Top posts")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"rank", "post_title"}, {"1", "First"}, {"2", "Second"}}, rows)
}
