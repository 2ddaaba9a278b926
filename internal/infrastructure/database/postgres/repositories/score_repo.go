package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Adstedt/contentmax-sub005/internal/domain/scoring"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// ScoreRepository persists per-node opportunity scores per pipeline run.
// Component scores and recommendations travel as JSONB; the flat columns are
// the ones ranked queries filter and order by.
type ScoreRepository struct {
	db  *sql.DB
	log logging.Logger
}

// NewScoreRepository constructs a ScoreRepository.
func NewScoreRepository(db *sql.DB, log logging.Logger) *ScoreRepository {
	return &ScoreRepository{db: db, log: log.Named("repo.scores")}
}

// SaveScores writes one run's opportunity scores in a single transaction.
func (r *ScoreRepository) SaveScores(ctx context.Context, runID common.RunID, scores []scoring.OpportunityScore) error {
	const insert = `
		INSERT INTO opportunity_scores
			(run_id, node_id, total, opportunity_type, confidence, components, recommendations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, node_id) DO UPDATE SET
			total = EXCLUDED.total,
			opportunity_type = EXCLUDED.opportunity_type,
			confidence = EXCLUDED.confidence,
			components = EXCLUDED.components,
			recommendations = EXCLUDED.recommendations`

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range scores {
			s := &scores[i]
			components, err := json.Marshal(s.Components)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode component scores")
			}
			recs, err := json.Marshal(s.Recommendations)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode recommendations")
			}
			if _, err := tx.ExecContext(ctx, insert,
				string(runID), string(s.NodeID), s.Total, string(s.Type),
				s.Confidence, components, recs,
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeScoringPersistFailed, "failed to write opportunity score").
					WithDetail("node=" + string(s.NodeID))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("opportunity scores persisted",
		logging.String("run_id", string(runID)),
		logging.Int("scores", len(scores)),
	)
	return nil
}

// ListTop returns one run's scores ordered by total descending (node id
// ascending on ties), limited to n.
func (r *ScoreRepository) ListTop(ctx context.Context, runID common.RunID, n int) ([]scoring.OpportunityScore, error) {
	const query = `
		SELECT node_id, total, opportunity_type, confidence, components, recommendations
		FROM opportunity_scores
		WHERE run_id = $1
		ORDER BY total DESC, node_id ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, string(runID), n)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query opportunity scores")
	}
	defer rows.Close()

	var out []scoring.OpportunityScore
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "opportunity score iteration failed")
	}
	return out, nil
}

// GetByType returns one run's scores with the given classification, ordered
// by total descending.
func (r *ScoreRepository) GetByType(ctx context.Context, runID common.RunID, typ scoring.OpportunityType) ([]scoring.OpportunityScore, error) {
	const query = `
		SELECT node_id, total, opportunity_type, confidence, components, recommendations
		FROM opportunity_scores
		WHERE run_id = $1 AND opportunity_type = $2
		ORDER BY total DESC, node_id ASC`

	rows, err := r.db.QueryContext(ctx, query, string(runID), string(typ))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query opportunity scores")
	}
	defer rows.Close()

	var out []scoring.OpportunityScore
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "opportunity score iteration failed")
	}
	return out, nil
}

func scanScore(row rowScanner) (scoring.OpportunityScore, error) {
	var (
		s          scoring.OpportunityScore
		id         string
		typ        string
		components []byte
		recs       []byte
	)
	if err := row.Scan(&id, &s.Total, &typ, &s.Confidence, &components, &recs); err != nil {
		return s, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan opportunity score")
	}
	s.NodeID = common.NodeID(id)
	s.Type = scoring.OpportunityType(typ)
	if err := json.Unmarshal(components, &s.Components); err != nil {
		return s, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode component scores")
	}
	if len(recs) > 0 && string(recs) != "null" {
		if err := json.Unmarshal(recs, &s.Recommendations); err != nil {
			return s, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode recommendations")
		}
	}
	return s, nil
}
