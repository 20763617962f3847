package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testConfig(seed int64) Config {
	cfg := DefaultConfig()
	cfg.Start = start
	cfg.Seed = seed
	return cfg
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := New(testConfig(7)).Generate(context.Background())
	require.NoError(t, err)
	b, err := New(testConfig(7)).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := New(testConfig(8)).Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.Records, c.Records)
}

func TestGenerateSize(t *testing.T) {
	cfg := testConfig(1)
	dataset, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	expected := cfg.NumTransactions + cfg.Mules*(cfg.FanIn+1) + cfg.RingSize
	assert.Len(t, dataset.Records, expected)
	assert.Equal(t, []string{"MULE-01", "MULE-02"}, dataset.Mules)
	assert.Equal(t, []string{"RING-01", "RING-02", "RING-03"}, dataset.Ring)
}

func TestPlantedPatternsAreFlagged(t *testing.T) {
	dataset, err := New(testConfig(42)).Generate(context.Background())
	require.NoError(t, err)

	engine, err := scoring.NewEngine(scoring.DefaultPolicy())
	require.NoError(t, err)
	result, err := engine.Analyze(dataset.Records)
	require.NoError(t, err)

	byAccount := make(map[string]scoring.AccountRiskRecord, len(result.Accounts))
	for _, a := range result.Accounts {
		byAccount[a.Account] = a
	}

	for _, mule := range dataset.Mules {
		rec, ok := byAccount[mule]
		require.True(t, ok, "mule %s not flagged", mule)
		assert.Contains(t, rec.ScoreBreakdown, scoring.SignalFundConvergence)
		assert.Contains(t, rec.ScoreBreakdown, scoring.SignalRapidPassThrough)
		assert.Contains(t, rec.ScoreBreakdown, scoring.SignalAmountStructuring)
	}
	for _, member := range dataset.Ring {
		rec, ok := byAccount[member]
		require.True(t, ok, "ring member %s not flagged", member)
		assert.True(t, rec.FloorApplied)
		assert.InDelta(t, 0.75, rec.RiskScore, 1e-9)
	}
}

func TestRingSizeIsClamped(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultPolicy())
	require.NoError(t, err)

	cases := []struct {
		size    int
		members int
	}{
		{size: -1, members: 0},
		{size: 0, members: 0},
		{size: 2, members: 3},
		{size: 5, members: 5},
		{size: 9, members: 6},
	}
	for _, tc := range cases {
		cfg := testConfig(3)
		cfg.NumTransactions = 0
		cfg.Mules = 0
		cfg.RingSize = tc.size

		dataset, err := New(cfg).Generate(context.Background())
		require.NoError(t, err)
		require.Len(t, dataset.Ring, tc.members, "ring size %d", tc.size)
		if tc.members == 0 {
			continue
		}

		result, err := engine.Analyze(dataset.Records)
		require.NoError(t, err)
		flagged := 0
		for _, a := range result.Accounts {
			if a.FloorApplied {
				flagged++
			}
		}
		assert.Equal(t, tc.members, flagged, "ring size %d", tc.size)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(1)).Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteBatch(t *testing.T) {
	dataset, err := New(testConfig(3)).Generate(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "batch.json")
	require.NoError(t, WriteBatch(dataset, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var payload domain.BatchPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, dataset.Records, payload.Records())

	var buf bytes.Buffer
	require.NoError(t, EncodeBatch(&buf, dataset))
	assert.Equal(t, raw, buf.Bytes())
}
