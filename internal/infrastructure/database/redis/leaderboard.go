package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adstedt/contentmax-sub005/internal/domain/scoring"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// LeaderboardEntry is one ranked node in the opportunity leaderboard.
type LeaderboardEntry struct {
	NodeID common.NodeID `json:"node_id"`
	Total  float64       `json:"total"`
}

// Leaderboard keeps per-run opportunity totals in a sorted set so the top-N
// query does not hit Postgres on every dashboard refresh.
type Leaderboard struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

// NewLeaderboard constructs a leaderboard with the given key prefix.  A zero
// ttl keeps run keys forever; callers normally pass the pipeline cache TTL.
func NewLeaderboard(client *Client, log logging.Logger, prefix string, ttl time.Duration) *Leaderboard {
	if prefix == "" {
		prefix = "contentmax:"
	}
	return &Leaderboard{
		client: client,
		logger: log.Named("redis.leaderboard"),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (l *Leaderboard) key(runID common.RunID) string {
	return fmt.Sprintf("%sleaderboard:%s", l.prefix, runID)
}

// Rebuild replaces the leaderboard for a run with the given scores.  The old
// set is deleted first so removed nodes do not linger.
func (l *Leaderboard) Rebuild(ctx context.Context, runID common.RunID, scores []scoring.OpportunityScore) error {
	key := l.key(runID)

	members := make([]goredis.Z, 0, len(scores))
	for i := range scores {
		members = append(members, goredis.Z{
			Score:  float64(scores[i].Total),
			Member: string(scores[i].NodeID),
		})
	}

	pipe := l.client.Raw().TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to rebuild leaderboard").
			WithDetail("run=" + string(runID))
	}

	l.logger.Info("leaderboard rebuilt",
		logging.String("run_id", string(runID)),
		logging.Int("entries", len(members)),
	)
	return nil
}

// Top returns the n highest-scoring nodes, best first.
func (l *Leaderboard) Top(ctx context.Context, runID common.RunID, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	zs, err := l.client.Raw().ZRevRangeWithScores(ctx, l.key(runID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read leaderboard")
	}

	out := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, LeaderboardEntry{NodeID: common.NodeID(member), Total: z.Score})
	}
	return out, nil
}

// Score returns one node's leaderboard total.  Returns ErrCacheMiss when the
// node is not ranked for the run.
func (l *Leaderboard) Score(ctx context.Context, runID common.RunID, nodeID common.NodeID) (float64, error) {
	score, err := l.client.Raw().ZScore(ctx, l.key(runID), string(nodeID)).Result()
	if err == goredis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read leaderboard score")
	}
	return score, nil
}

// Remove drops nodes from a run's leaderboard.
func (l *Leaderboard) Remove(ctx context.Context, runID common.RunID, nodeIDs ...common.NodeID) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(nodeIDs))
	for i, id := range nodeIDs {
		members[i] = string(id)
	}
	if err := l.client.Raw().ZRem(ctx, l.key(runID), members...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to remove leaderboard entries")
	}
	return nil
}
