// Package reporting turns one run's results into flat tabular exports.
// Column order is fixed so repeated exports of the same run diff cleanly.
package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/prometheus"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/storage/minio"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// Report file names within one run's prefix.
const (
	OpportunitiesReport = "opportunities.csv"
	TaxonomyReport      = "taxonomy.csv"
)

const csvContentType = "text/csv"

// opportunityColumns is the fixed header of the opportunities export.
var opportunityColumns = []string{
	"node_id", "title", "path", "depth", "product_count",
	"clicks", "impressions", "ctr", "avg_position",
	"sessions", "revenue", "conversion_rate", "bounce_rate",
	"score", "type", "confidence", "recommendations",
}

// taxonomyColumns is the fixed header of the taxonomy export.
var taxonomyColumns = []string{
	"node_id", "title", "path", "depth", "parent_id", "source", "product_count",
}

// Uploader is the object-storage surface the exporter needs.
type Uploader interface {
	Put(ctx context.Context, runID common.RunID, name string, data []byte, contentType string) (*minio.ReportObject, error)
	DownloadURL(ctx context.Context, runID common.RunID, name string, expiry time.Duration) (string, error)
}

// Exporter renders run results to CSV and optionally uploads them.
type Exporter struct {
	store      Uploader
	appMetrics *prometheus.AppMetrics
	log        logging.Logger
}

// NewExporter constructs an Exporter.  A nil store limits it to in-memory
// rendering; a nil metrics handle disables counting.
func NewExporter(store Uploader, appMetrics *prometheus.AppMetrics, log logging.Logger) *Exporter {
	return &Exporter{
		store:      store,
		appMetrics: appMetrics,
		log:        log.Named("reporting"),
	}
}

// RenderOpportunities renders the scored opportunity table in score order
// (total descending, node id ascending), one row per surviving node.
func (e *Exporter) RenderOpportunities(res *pipeline.RunResult) ([]byte, error) {
	if res == nil {
		return nil, errors.New(errors.ErrCodeValidation, "run result is required")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(opportunityColumns); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "csv header write failed")
	}

	for _, score := range res.Scores {
		node := res.Nodes[score.NodeID]
		if node == nil {
			continue
		}
		row := []string{
			string(score.NodeID),
			node.Title,
			node.Path,
			strconv.Itoa(node.Depth),
			strconv.Itoa(node.ProductCount),
		}
		if s := res.Search[score.NodeID]; s != nil {
			row = append(row,
				strconv.FormatInt(s.Clicks, 10),
				strconv.FormatInt(s.Impressions, 10),
				formatFloat(s.CTR),
				formatFloat(s.AvgPosition),
			)
		} else {
			row = append(row, "0", "0", "0", "0")
		}
		if b := res.Behavioral[score.NodeID]; b != nil {
			row = append(row,
				strconv.FormatInt(b.Sessions, 10),
				formatFloat(b.Revenue),
				formatFloat(b.ConversionRate),
				formatFloat(b.BounceRate),
			)
		} else {
			row = append(row, "0", "0", "0", "0")
		}
		row = append(row,
			strconv.Itoa(score.Total),
			string(score.Type),
			formatFloat(score.Confidence),
			strings.Join(score.Recommendations, "; "),
		)
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "csv row write failed")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "csv flush failed")
	}
	return buf.Bytes(), nil
}

// RenderTaxonomy renders the surviving node forest ordered by node id.
func (e *Exporter) RenderTaxonomy(res *pipeline.RunResult) ([]byte, error) {
	if res == nil {
		return nil, errors.New(errors.ErrCodeValidation, "run result is required")
	}

	ids := make([]common.NodeID, 0, len(res.Nodes))
	for id := range res.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(taxonomyColumns); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "csv header write failed")
	}
	for _, id := range ids {
		n := res.Nodes[id]
		if err := w.Write([]string{
			string(n.ID),
			n.Title,
			n.Path,
			strconv.Itoa(n.Depth),
			string(n.ParentID),
			string(n.Source),
			strconv.Itoa(n.ProductCount),
		}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "csv row write failed")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "csv flush failed")
	}
	return buf.Bytes(), nil
}

// ExportResult describes one uploaded report.
type ExportResult struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
	URL  string `json:"url,omitempty"`
}

// Export renders both reports and uploads them under the run's prefix,
// returning presigned links.  Requires a configured store.
func (e *Exporter) Export(ctx context.Context, res *pipeline.RunResult) ([]ExportResult, error) {
	if e.store == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no report store configured")
	}

	renders := []struct {
		name   string
		render func(*pipeline.RunResult) ([]byte, error)
	}{
		{OpportunitiesReport, e.RenderOpportunities},
		{TaxonomyReport, e.RenderTaxonomy},
	}

	runID := res.Summary.RunID
	out := make([]ExportResult, 0, len(renders))
	for _, r := range renders {
		data, err := r.render(res)
		if err != nil {
			return nil, err
		}
		obj, err := e.store.Put(ctx, runID, r.name, data, csvContentType)
		if err != nil {
			return nil, err
		}
		link, err := e.store.DownloadURL(ctx, runID, r.name, 0)
		if err != nil {
			// The object is durable; a failed presign only loses the link.
			e.log.Warn("report presign failed",
				logging.String("run_id", string(runID)),
				logging.String("name", r.name),
				logging.Err(err),
			)
			link = ""
		}
		if e.appMetrics != nil {
			e.appMetrics.ReportsExported.WithLabelValues("csv").Inc()
		}
		out = append(out, ExportResult{
			Name: r.name,
			Key:  obj.Key,
			Size: obj.Size,
			URL:  link,
		})
		e.log.Info("report exported",
			logging.String("run_id", string(runID)),
			logging.String("key", obj.Key),
			logging.Int64("bytes", obj.Size),
		)
	}
	return out, nil
}

// formatFloat renders with minimal digits so integral values stay clean.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
