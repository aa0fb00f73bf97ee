package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jpl-au/fileindex"
	"github.com/stretchr/testify/require"
)

func setupIndexedStore(t *testing.T) string {
	t.Helper()
	projectDir := t.TempDir()
	writeTestFile(t, projectDir, "a.txt", "apple banana apple")
	writeTestFile(t, projectDir, "b.txt", "banana cherry")

	storeDir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, runRebuild(context.Background(), projectDir, storeDir))
	return storeDir
}

func TestWithRegistryRunsAgainstTheConfiguredStore(t *testing.T) {
	storeRoot = setupIndexedStore(t)

	var sawIndex *fileindex.Registry
	err := withRegistry(func(r *fileindex.Registry) error {
		sawIndex = r
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, sawIndex)
}

func TestWithRegistryExposesIndexedKeys(t *testing.T) {
	storeRoot = setupIndexedStore(t)

	var keys []string
	err := withRegistry(func(r *fileindex.Registry) error {
		index, err := fileindex.Lookup[string, int](r, wordsIndexID)
		if err != nil {
			return err
		}
		return index.ProcessAllKeys(func(k string) bool {
			keys = append(keys, k)
			return true
		})
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"apple", "banana", "cherry"}, keys)
}

func TestWithRegistryProcessFilesContainingAllKeys(t *testing.T) {
	storeRoot = setupIndexedStore(t)

	var ids []int
	err := withRegistry(func(r *fileindex.Registry) error {
		var err error
		ids, err = fileindex.ProcessFilesContainingAllKeys[string, int](context.Background(), r, wordsIndexID, []string{"apple", "banana"})
		return err
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)
}
