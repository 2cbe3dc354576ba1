package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

func sampleExtract() *models.BorderoExtract {
	home := "Palmeiras"
	paid := int64(31250)
	return &models.BorderoExtract{
		MatchDetails: &models.MatchDetails{HomeTeam: &home},
		FinancialData: &models.FinancialData{
			GrossRevenue: decimal.NewNullDecimal(decimal.RequireFromString("2150300.75")),
		},
		AudienceStatistics: &models.AudienceStatistics{PaidAttendance: &paid},
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"), nil)
	require.NoError(t, err)

	_, ok := c.Get(ctx, "14210b_2025")
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "14210b_2025", sampleExtract()))

	got, ok := c.Get(ctx, "14210b_2025")
	require.True(t, ok)
	assert.Equal(t, "Palmeiras", *got.MatchDetails.HomeTeam)
	assert.Equal(t, int64(31250), *got.AudienceStatistics.PaidAttendance)
	assert.True(t, got.FinancialData.GrossRevenue.Decimal.Equal(decimal.RequireFromString("2150300.75")))

	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "4241b_2025.json"), []byte("{not json"), 0o644))

	got, ok := c.Get(ctx, "4241b_2025")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestFileCachePutOverwrites(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "id", &models.BorderoExtract{}))
	require.NoError(t, c.Put(ctx, "id", sampleExtract()))

	got, ok := c.Get(ctx, "id")
	require.True(t, ok)
	require.NotNil(t, got.MatchDetails)
}
