package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func broadsheetDataset() Dataset {
	return Dataset{
		Title:   "JSS 1A Mathematics",
		Headers: []string{"Admission No", "Name", "CA", "Exam", "Total", "Grade"},
		Rows: []map[string]string{
			{"Admission No": "ALD/2024/0001", "Name": "Amina Bello", "CA": "35", "Exam": "50", "Total": "85", "Grade": "A"},
			{"Admission No": "ALD/2024/0002", "Name": "Tunde Ade", "CA": "", "Exam": "", "Total": "–", "Grade": "–"},
		},
		Footer: []string{"Average: 85.0"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(broadsheetDataset())
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "Admission No,Name,CA,Exam,Total,Grade", string(lines[0]))
	assert.Equal(t, "ALD/2024/0001,Amina Bello,35,50,85,A", string(lines[1]))
	assert.Equal(t, "Average: 85.0", string(lines[3]))
}

func TestRenderersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoColumns)
	_, err = NewPDFExporter(true).Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestCSVExporterLeavesMissingCellsEmpty(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Name", "Balance"},
		Rows:    []map[string]string{{"Name": "Amina Bello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Name,Balance\nAmina Bello,\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	renderer := NewPDFExporter(true)
	out, err := renderer.Render(broadsheetDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "pdf", renderer.Extension())
	assert.Equal(t, "application/pdf", renderer.ContentType())
}
