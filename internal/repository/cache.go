package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/common/metrics"
	"talent-match-workers/internal/matching"

	"github.com/redis/go-redis/v9"
)

// Ranking is the cached outcome of a find-best-matches run.
type Ranking struct {
	Matches         []matching.MatchResult `json:"matches"`
	Recommendations []string               `json:"recommendations"`
	Evaluated       int                    `json:"evaluated"`
	Skipped         int                    `json:"skipped"`
	AverageScore    float64                `json:"averageScore"`
}

// MatchCache stores match results in redis for a fixed TTL.
type MatchCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewMatchCache(client redis.Cmdable, prefix string, ttl time.Duration) *MatchCache {
	return &MatchCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *MatchCache) matchKey(projectID, freelancerID string) string {
	return c.key("match", projectID, freelancerID)
}

func (c *MatchCache) rankingKey(projectID string, limit int) string {
	return c.key("matches", projectID, fmt.Sprint(limit))
}

func (c *MatchCache) key(parts ...string) string {
	k := strings.Join(parts, ":")
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// GetMatch returns the cached result for one freelancer. ok is false on a miss.
func (c *MatchCache) GetMatch(ctx context.Context, projectID, freelancerID string) (*matching.MatchResult, bool, error) {
	var r matching.MatchResult
	ok, err := c.get(ctx, c.matchKey(projectID, freelancerID), &r)
	if !ok {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *MatchCache) SetMatch(ctx context.Context, r *matching.MatchResult) error {
	return c.set(ctx, c.matchKey(r.ProjectID, r.CandidateID), r)
}

func (c *MatchCache) GetRanking(ctx context.Context, projectID string, limit int) (*Ranking, bool, error) {
	var r Ranking
	ok, err := c.get(ctx, c.rankingKey(projectID, limit), &r)
	if !ok {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *MatchCache) SetRanking(ctx context.Context, projectID string, limit int, r *Ranking) error {
	return c.set(ctx, c.rankingKey(projectID, limit), r)
}

func (c *MatchCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return false, errors.NewMatchCacheFailedError("get", err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		// Entries written by an older layout are treated as misses.
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

func (c *MatchCache) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewMatchCacheFailedError("encode", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.NewMatchCacheFailedError("set", err)
	}
	return nil
}
