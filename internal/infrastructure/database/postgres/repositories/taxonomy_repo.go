package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/Adstedt/contentmax-sub005/internal/domain/taxonomy"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// TaxonomyRepository persists taxonomy snapshots per pipeline run.
type TaxonomyRepository struct {
	db  *sql.DB
	log logging.Logger
}

// NewTaxonomyRepository constructs a TaxonomyRepository.
func NewTaxonomyRepository(db *sql.DB, log logging.Logger) *TaxonomyRepository {
	return &TaxonomyRepository{db: db, log: log.Named("repo.taxonomy")}
}

// SaveForest writes the full node set for one run inside a single
// transaction.  Nodes are inserted parents before children so the
// self-referencing foreign key holds at every point of the transaction.
func (r *TaxonomyRepository) SaveForest(ctx context.Context, runID common.RunID, nodes map[common.NodeID]*taxonomy.Node) error {
	if err := taxonomy.ValidateForest(nodes); err != nil {
		return errors.Wrap(err, errors.ErrCodeTaxonomyPersistFailed, "refusing to persist invalid forest")
	}

	const insertNode = `
		INSERT INTO taxonomy_nodes
			(run_id, node_id, title, path, depth, parent_id, product_count, source, metadata)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (run_id, node_id) DO UPDATE SET
			title = EXCLUDED.title,
			path = EXCLUDED.path,
			depth = EXCLUDED.depth,
			parent_id = EXCLUDED.parent_id,
			product_count = EXCLUDED.product_count,
			source = EXCLUDED.source,
			metadata = EXCLUDED.metadata`

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, n := range taxonomy.NodesByDepthAscending(nodes) {
			meta, err := json.Marshal(n.Metadata)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode node metadata")
			}
			if _, err := tx.ExecContext(ctx, insertNode,
				string(runID), string(n.ID), n.Title, n.Path, n.Depth,
				string(n.ParentID), n.ProductCount, string(n.Source), meta,
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeTaxonomyPersistFailed, "failed to insert taxonomy node").
					WithDetail("node=" + string(n.ID))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("taxonomy snapshot persisted",
		logging.String("run_id", string(runID)),
		logging.Int("nodes", len(nodes)),
	)
	return nil
}

// GetForest loads the full node set of one run.
func (r *TaxonomyRepository) GetForest(ctx context.Context, runID common.RunID) (map[common.NodeID]*taxonomy.Node, error) {
	const query = `
		SELECT node_id, title, path, depth, COALESCE(parent_id, ''), product_count, source, metadata
		FROM taxonomy_nodes
		WHERE run_id = $1`

	rows, err := r.db.QueryContext(ctx, query, string(runID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query taxonomy nodes")
	}
	defer rows.Close()

	nodes := make(map[common.NodeID]*taxonomy.Node)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "taxonomy node iteration failed")
	}
	return nodes, nil
}

// GetNode loads one node of one run.  Returns ErrCodeNodeNotFound
// when the node does not exist.
func (r *TaxonomyRepository) GetNode(ctx context.Context, runID common.RunID, id common.NodeID) (*taxonomy.Node, error) {
	const query = `
		SELECT node_id, title, path, depth, COALESCE(parent_id, ''), product_count, source, metadata
		FROM taxonomy_nodes
		WHERE run_id = $1 AND node_id = $2`

	n, err := scanNode(r.db.QueryRowContext(ctx, query, string(runID), string(id)))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeNodeNotFound, "taxonomy node not found").
				WithDetail("node=" + string(id))
		}
		return nil, err
	}
	return n, nil
}

// DeleteRun removes one run's taxonomy snapshot.
func (r *TaxonomyRepository) DeleteRun(ctx context.Context, runID common.RunID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM taxonomy_nodes WHERE run_id = $1`, string(runID)); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete taxonomy snapshot")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*taxonomy.Node, error) {
	var (
		n      taxonomy.Node
		id     string
		parent string
		source string
		meta   []byte
	)
	if err := row.Scan(&id, &n.Title, &n.Path, &n.Depth, &parent, &n.ProductCount, &source, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan taxonomy node")
	}
	n.ID = common.NodeID(id)
	n.ParentID = common.NodeID(parent)
	n.Source = taxonomy.SourceTag(source)
	if len(meta) > 0 && string(meta) != "null" {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode node metadata")
		}
	}
	return &n, nil
}
