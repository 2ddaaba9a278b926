package repositories

import (
	"context"
	"database/sql"

	"github.com/Adstedt/contentmax-sub005/internal/domain/metrics"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// MetricsRepository persists aggregated per-node metrics per pipeline run.
// Search and behavioral families are stored in separate tables mirroring the
// two aggregation outputs.
type MetricsRepository struct {
	db  *sql.DB
	log logging.Logger
}

// NewMetricsRepository constructs a MetricsRepository.
func NewMetricsRepository(db *sql.DB, log logging.Logger) *MetricsRepository {
	return &MetricsRepository{db: db, log: log.Named("repo.metrics")}
}

// SaveSearch writes one run's aggregated search metrics in a single
// transaction.
func (r *MetricsRepository) SaveSearch(ctx context.Context, runID common.RunID, m map[common.NodeID]*metrics.AggregatedSearch) error {
	const insert = `
		INSERT INTO search_metrics
			(run_id, node_id, clicks, impressions, ctr, avg_position)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, node_id) DO UPDATE SET
			clicks = EXCLUDED.clicks,
			impressions = EXCLUDED.impressions,
			ctr = EXCLUDED.ctr,
			avg_position = EXCLUDED.avg_position`

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, agg := range m {
			if err := execInsert(ctx, tx, insert,
				string(runID), string(agg.NodeID), agg.Clicks, agg.Impressions,
				agg.CTR, agg.AvgPosition,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("search metrics persisted",
		logging.String("run_id", string(runID)),
		logging.Int("nodes", len(m)),
	)
	return nil
}

// SaveBehavioral writes one run's aggregated behavioral metrics in a single
// transaction.
func (r *MetricsRepository) SaveBehavioral(ctx context.Context, runID common.RunID, m map[common.NodeID]*metrics.AggregatedBehavioral) error {
	const insert = `
		INSERT INTO behavioral_metrics
			(run_id, node_id, revenue, transactions, sessions, users, page_views,
			 conversion_rate, avg_order_value, engagement_rate, bounce_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id, node_id) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			transactions = EXCLUDED.transactions,
			sessions = EXCLUDED.sessions,
			users = EXCLUDED.users,
			page_views = EXCLUDED.page_views,
			conversion_rate = EXCLUDED.conversion_rate,
			avg_order_value = EXCLUDED.avg_order_value,
			engagement_rate = EXCLUDED.engagement_rate,
			bounce_rate = EXCLUDED.bounce_rate`

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, agg := range m {
			if err := execInsert(ctx, tx, insert,
				string(runID), string(agg.NodeID), agg.Revenue, agg.Transactions,
				agg.Sessions, agg.Users, agg.PageViews, agg.ConversionRate,
				agg.AvgOrderValue, agg.EngagementRate, agg.BounceRate,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("behavioral metrics persisted",
		logging.String("run_id", string(runID)),
		logging.Int("nodes", len(m)),
	)
	return nil
}

// GetSearch loads one run's aggregated search metrics.
func (r *MetricsRepository) GetSearch(ctx context.Context, runID common.RunID) (map[common.NodeID]*metrics.AggregatedSearch, error) {
	const query = `
		SELECT node_id, clicks, impressions, ctr, avg_position
		FROM search_metrics
		WHERE run_id = $1`

	rows, err := r.db.QueryContext(ctx, query, string(runID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query search metrics")
	}
	defer rows.Close()

	out := make(map[common.NodeID]*metrics.AggregatedSearch)
	for rows.Next() {
		var (
			agg metrics.AggregatedSearch
			id  string
		)
		if err := rows.Scan(&id, &agg.Clicks, &agg.Impressions, &agg.CTR, &agg.AvgPosition); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan search metrics")
		}
		agg.NodeID = common.NodeID(id)
		out[agg.NodeID] = &agg
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "search metrics iteration failed")
	}
	return out, nil
}

// GetBehavioral loads one run's aggregated behavioral metrics.
func (r *MetricsRepository) GetBehavioral(ctx context.Context, runID common.RunID) (map[common.NodeID]*metrics.AggregatedBehavioral, error) {
	const query = `
		SELECT node_id, revenue, transactions, sessions, users, page_views,
		       conversion_rate, avg_order_value, engagement_rate, bounce_rate
		FROM behavioral_metrics
		WHERE run_id = $1`

	rows, err := r.db.QueryContext(ctx, query, string(runID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query behavioral metrics")
	}
	defer rows.Close()

	out := make(map[common.NodeID]*metrics.AggregatedBehavioral)
	for rows.Next() {
		var (
			agg metrics.AggregatedBehavioral
			id  string
		)
		if err := rows.Scan(&id, &agg.Revenue, &agg.Transactions, &agg.Sessions,
			&agg.Users, &agg.PageViews, &agg.ConversionRate, &agg.AvgOrderValue,
			&agg.EngagementRate, &agg.BounceRate); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan behavioral metrics")
		}
		agg.NodeID = common.NodeID(id)
		out[agg.NodeID] = &agg
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "behavioral metrics iteration failed")
	}
	return out, nil
}

// execInsert runs one parameterised write against the executor and maps any
// failure to the metrics persist error code.
func execInsert(ctx context.Context, q queryExecutor, query string, args ...interface{}) error {
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, errors.ErrCodeMetricsPersistFailed, "failed to write aggregated metrics")
	}
	return nil
}
