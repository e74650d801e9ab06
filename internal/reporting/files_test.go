package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-outcome-lab/internal/metrics"
)

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats(" XLSX, csv,,md,csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"xlsx", "csv", "md"}, got)

	_, err = ParseFormats("xlsx,pdf")
	assert.Error(t, err)
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	report := Build(metrics.Analyze(sampleResults()), fixedNow)

	paths, err := WriteFiles(dir, report, []string{FormatXLSX, FormatCSV, FormatMarkdown})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, filepath.Join(dir, "processed_strategy_results_20240305_140709.xlsx"), paths[0])
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	md, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Strategy Evaluation Report")
}
