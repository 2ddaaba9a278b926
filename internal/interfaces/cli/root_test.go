package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  user: contentmax
log:
  level: error
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTestProducts(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "products.json")
	content := `[
		{"id": "p1", "title": "Rose Bed", "category_path": "Home > Garden", "in_stock": true, "has_image": true, "price": 25},
		{"id": "p2", "title": "Trowel", "category_path": "Home > Garden", "in_stock": true, "has_image": false, "price": 9},
		{"id": "p3", "title": "Phone X", "category_path": "Electronics > Phones", "in_stock": false, "has_image": true, "price": 599}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// captureStdout runs fn while collecting everything written to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestFormatTable_AlignsColumns(t *testing.T) {
	out := FormatTable([]string{"ID", "TITLE"}, [][]string{
		{"a", "short"},
		{"long-id", "x"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID       TITLE", lines[0])
	assert.Equal(t, "-------  -----", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "a      "))
	assert.True(t, strings.HasPrefix(lines[3], "long-id"))
}

func TestPrintResult_JSON(t *testing.T) {
	out := captureStdout(t, func() {
		err := PrintResult(&RootOptions{Output: "json"}, map[string]int{"count": 3})
		require.NoError(t, err)
	})

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 3, decoded["count"])
}

func TestRunCommand_ExecutesPipeline(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	products := writeTestProducts(t, dir)

	root := NewRootCommand()
	root.SetArgs([]string{"run", "--config", cfgPath, "--products", products, "-o", "json"})

	out := captureStdout(t, func() {
		require.NoError(t, root.Execute())
	})

	var summary struct {
		RunID       string `json:"run_id"`
		Nodes       int    `json:"nodes"`
		Products    int    `json:"products"`
		ScoredNodes int    `json:"scored_nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Products)
	assert.Equal(t, 4, summary.Nodes)
	assert.Equal(t, 4, summary.ScoredNodes)
}

func TestRunCommand_MissingProductsFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	root := NewRootCommand()
	root.SetArgs([]string{"run", "--config", cfgPath})

	assert.Error(t, root.Execute())
}

func TestExportCommand_WritesReports(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	products := writeTestProducts(t, dir)
	outDir := filepath.Join(dir, "reports")

	root := NewRootCommand()
	root.SetArgs([]string{"export", "--config", cfgPath, "--products", products, "--out", outDir, "-o", "json"})

	out := captureStdout(t, func() {
		require.NoError(t, root.Execute())
	})

	var view exportView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Files, 2)

	opps, err := os.ReadFile(filepath.Join(outDir, "opportunities.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(opps), "node_id,"))

	tax, err := os.ReadFile(filepath.Join(outDir, "taxonomy.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(tax), "home-garden")
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "contentmax", cfg.Database.User)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestRunView_Rows(t *testing.T) {
	headers, rows := runView{}.Rows()
	assert.Equal(t, []string{"FIELD", "VALUE"}, headers)
	require.NotEmpty(t, rows)
	assert.Equal(t, "run id", rows[0][0])
}
