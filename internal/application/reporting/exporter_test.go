package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
	"github.com/Adstedt/contentmax-sub005/internal/domain/metrics"
	"github.com/Adstedt/contentmax-sub005/internal/domain/scoring"
	"github.com/Adstedt/contentmax-sub005/internal/domain/taxonomy"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/storage/minio"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

type fakeUploader struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeUploader) Put(_ context.Context, runID common.RunID, name string, data []byte, _ string) (*minio.ReportObject, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	key := minio.ObjectKey(runID, name)
	f.objects[key] = data
	return &minio.ReportObject{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeUploader) DownloadURL(_ context.Context, runID common.RunID, name string, _ time.Duration) (string, error) {
	return "https://storage.example.com/" + minio.ObjectKey(runID, name), nil
}

func testResult() *pipeline.RunResult {
	return &pipeline.RunResult{
		Summary: pipeline.RunSummary{RunID: "run-1"},
		Nodes: map[common.NodeID]*taxonomy.Node{
			"home": {
				ID: "home", Title: "Home", Path: "Home", Depth: 1,
				Source: taxonomy.SourceCatalog, ProductCount: 2,
			},
			"home-garden": {
				ID: "home-garden", Title: "Garden", Path: "Home > Garden", Depth: 2,
				ParentID: "home", Source: taxonomy.SourceCatalog, ProductCount: 2,
			},
		},
		Search: map[common.NodeID]*metrics.AggregatedSearch{
			"home-garden": {NodeID: "home-garden", Clicks: 30, Impressions: 1000, CTR: 0.03, AvgPosition: 8},
		},
		Behavioral: map[common.NodeID]*metrics.AggregatedBehavioral{
			"home-garden": {NodeID: "home-garden", Sessions: 200, Revenue: 1000, ConversionRate: 0.05, BounceRate: 0.4},
		},
		Scores: []scoring.OpportunityScore{
			{
				NodeID: "home-garden", Total: 72, Type: scoring.TypeQuickWin, Confidence: 0.75,
				Recommendations: []string{"Improve meta descriptions", "Add internal links"},
			},
			{NodeID: "home", Total: 40, Type: scoring.TypeMaintenance, Confidence: 0.5},
		},
	}
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRenderOpportunities(t *testing.T) {
	e := NewExporter(nil, nil, logging.NewNopLogger())

	data, err := e.RenderOpportunities(testResult())
	require.NoError(t, err)

	rows := parseCSV(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, opportunityColumns, rows[0])

	// Score order: home-garden (72) before home (40).
	assert.Equal(t, []string{
		"home-garden", "Garden", "Home > Garden", "2", "2",
		"30", "1000", "0.03", "8",
		"200", "1000", "0.05", "0.4",
		"72", "quick_win", "0.75", "Improve meta descriptions; Add internal links",
	}, rows[1])

	// Nodes without metrics render zero columns, not blanks.
	assert.Equal(t, "home", rows[2][0])
	assert.Equal(t, "0", rows[2][5])  // clicks
	assert.Equal(t, "0", rows[2][9])  // sessions
	assert.Equal(t, "", rows[2][16])  // recommendations
}

func TestRenderOpportunities_NilResult(t *testing.T) {
	e := NewExporter(nil, nil, logging.NewNopLogger())
	_, err := e.RenderOpportunities(nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRenderTaxonomy_SortedByNodeID(t *testing.T) {
	e := NewExporter(nil, nil, logging.NewNopLogger())

	data, err := e.RenderTaxonomy(testResult())
	require.NoError(t, err)

	rows := parseCSV(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, taxonomyColumns, rows[0])
	assert.Equal(t, []string{"home", "Home", "Home", "1", "", "catalog", "2"}, rows[1])
	assert.Equal(t, []string{"home-garden", "Garden", "Home > Garden", "2", "home", "catalog", "2"}, rows[2])
}

func TestRender_Deterministic(t *testing.T) {
	e := NewExporter(nil, nil, logging.NewNopLogger())
	res := testResult()

	first, err := e.RenderOpportunities(res)
	require.NoError(t, err)
	second, err := e.RenderOpportunities(res)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExport_UploadsBothReports(t *testing.T) {
	store := &fakeUploader{}
	e := NewExporter(store, nil, logging.NewNopLogger())

	out, err := e.Export(context.Background(), testResult())
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, OpportunitiesReport, out[0].Name)
	assert.Equal(t, "reports/run-1/opportunities.csv", out[0].Key)
	assert.Contains(t, out[0].URL, out[0].Key)
	assert.Equal(t, TaxonomyReport, out[1].Name)

	assert.Contains(t, store.objects, "reports/run-1/opportunities.csv")
	assert.Contains(t, store.objects, "reports/run-1/taxonomy.csv")
}

func TestExport_WithoutStore(t *testing.T) {
	e := NewExporter(nil, nil, logging.NewNopLogger())
	_, err := e.Export(context.Background(), testResult())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestExport_PutFailurePropagates(t *testing.T) {
	store := &fakeUploader{putErr: errors.New(errors.ErrCodeStorageError, "bucket gone")}
	e := NewExporter(store, nil, logging.NewNopLogger())

	_, err := e.Export(context.Background(), testResult())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
}
