package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Action", "Actor"},
		Rows: []map[string]string{
			{"Action": "اعتماد", "Actor": "مشرف النظام"},
			{"Action": "حذف", "Actor": "سارة علي"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	content, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "\xEF\xBB\xBF"), "BOM keeps Arabic readable in spreadsheets")
	assert.Contains(t, text, "Action,Actor")
	assert.Contains(t, text, "اعتماد,مشرف النظام")

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	content, err := NewPDFExporter().Render(sampleDataset(), "Audit Log")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))

	_, err = NewPDFExporter().Render(Dataset{}, "")
	require.Error(t, err)
}
