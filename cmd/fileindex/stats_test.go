package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunStatsSucceedsOnFreshStore(t *testing.T) {
	require.NoError(t, runStats(t.TempDir()))
}

func TestRunStatsSucceedsAfterRebuild(t *testing.T) {
	dir := setupIndexedStore(t)
	require.NoError(t, runStats(dir))
}
