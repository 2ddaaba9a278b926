package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
	"github.com/Adstedt/contentmax-sub005/internal/application/reporting"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/storage/minio"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
)

type exportOptions struct {
	paths  pipeline.SnapshotPaths
	outDir string
	upload bool
}

func newExportCommand() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run the pipeline and write CSV reports",
		Long: `Export executes the pipeline from snapshot files and writes the
opportunity and taxonomy reports as CSV.  Reports land in the output
directory; --upload additionally pushes them to the configured object store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := FromCommand(cmd)

			snap, err := pipeline.LoadSnapshot(opts.paths)
			if err != nil {
				return err
			}

			svc := pipeline.NewService(cc.Config.Pipeline, pipeline.Deps{}, cc.Logger)
			res, err := svc.Run(cmd.Context(), snap)
			if err != nil {
				return err
			}

			exporter := reporting.NewExporter(nil, nil, cc.Logger)
			written, err := writeReports(exporter, res, opts.outDir)
			if err != nil {
				return err
			}

			if opts.upload {
				client, err := minio.NewClient(cc.Config.MinIO, cc.Logger)
				if err != nil {
					return err
				}
				store := minio.NewReportStore(client, cc.Logger)
				uploaded, err := reporting.NewExporter(store, nil, cc.Logger).Export(cmd.Context(), res)
				if err != nil {
					return err
				}
				for _, u := range uploaded {
					cc.Logger.Info("report uploaded",
						logging.String("key", u.Key),
						logging.Int64("size", u.Size),
					)
				}
			}

			return PrintResult(cc.Opts, exportView{RunID: string(res.Summary.RunID), Files: written})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.paths.Products, "products", "", "product snapshot JSON (required)")
	flags.StringVar(&opts.paths.Search, "search", "", "search metrics JSON")
	flags.StringVar(&opts.paths.Behavioral, "behavioral", "", "behavioral metrics JSON")
	flags.StringVar(&opts.paths.URLMap, "url-map", "", "URL to node id map JSON")
	flags.StringVar(&opts.outDir, "out", ".", "directory the CSV reports are written to")
	flags.BoolVar(&opts.upload, "upload", false, "also upload reports to the configured object store")
	_ = cmd.MarkFlagRequired("products")

	return cmd
}

// writeReports renders both CSV reports into dir and returns the file paths.
func writeReports(exporter *reporting.Exporter, res *pipeline.RunResult, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create output directory")
	}

	renders := []struct {
		name   string
		render func(*pipeline.RunResult) ([]byte, error)
	}{
		{reporting.OpportunitiesReport, exporter.RenderOpportunities},
		{reporting.TaxonomyReport, exporter.RenderTaxonomy},
	}

	var written []string
	for _, r := range renders {
		data, err := r.render(res)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, r.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to write report").
				WithDetail("path=" + path)
		}
		written = append(written, path)
	}
	return written, nil
}

type exportView struct {
	RunID string   `json:"run_id"`
	Files []string `json:"files"`
}

func (v exportView) Rows() ([]string, [][]string) {
	rows := make([][]string, 0, len(v.Files))
	for _, f := range v.Files {
		rows = append(rows, []string{v.RunID, f})
	}
	return []string{"RUN", "REPORT"}, rows
}
