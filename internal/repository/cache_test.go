package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	commonerrors "talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/matching"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*MatchCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewMatchCache(client, "talent-match", 15*time.Minute), mr
}

func TestMatchCache_MatchRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetMatch(ctx, "p-1", "f-1")
	require.NoError(t, err)
	assert.False(t, ok)

	result := &matching.MatchResult{CandidateID: "f-1", ProjectID: "p-1", MatchScore: 88.5, MatchGrade: matching.GradeExcellent}
	require.NoError(t, cache.SetMatch(ctx, result))

	assert.True(t, mr.Exists("talent-match:match:p-1:f-1"))
	assert.Equal(t, 15*time.Minute, mr.TTL("talent-match:match:p-1:f-1"))

	got, ok, err := cache.GetMatch(ctx, "p-1", "f-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 88.5, got.MatchScore)
	assert.Equal(t, matching.GradeExcellent, got.MatchGrade)

	mr.FastForward(16 * time.Minute)
	_, ok, err = cache.GetMatch(ctx, "p-1", "f-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchCache_RankingRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	ranking := &Ranking{
		Matches:         []matching.MatchResult{{CandidateID: "f-2", MatchScore: 71}},
		Recommendations: []string{"No excellent matches found"},
		Evaluated:       40,
	}
	require.NoError(t, cache.SetRanking(ctx, "p-1", 10, ranking))
	assert.True(t, mr.Exists("talent-match:matches:p-1:10"))

	got, ok, err := cache.GetRanking(ctx, "p-1", 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40, got.Evaluated)
	assert.Equal(t, "f-2", got.Matches[0].CandidateID)

	_, ok, _ = cache.GetRanking(ctx, "p-1", 5)
	assert.False(t, ok)
}

func TestMatchCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set("talent-match:match:p-1:f-1", "{not json"))

	_, ok, err := cache.GetMatch(context.Background(), "p-1", "f-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchCache_RedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewMatchCache(client, "", time.Minute)
	ctx := context.Background()

	mock.ExpectGet("match:p-1:f-1").SetErr(errors.New("LOADING Redis is loading the dataset"))
	_, _, err := cache.GetMatch(ctx, "p-1", "f-1")
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeMatchCacheFailed, errorCode(t, err))

	mock.Regexp().ExpectSet("match:p-1:f-1", `.*`, time.Minute).SetErr(errors.New("OOM"))
	err = cache.SetMatch(ctx, &matching.MatchResult{CandidateID: "f-1", ProjectID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeMatchCacheFailed, errorCode(t, err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
