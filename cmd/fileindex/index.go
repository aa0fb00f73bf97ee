package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/jpl-au/fileindex"
	"github.com/jpl-au/fileindex/internal/store"
)

// wordsIndexID is the one built-in index this CLI ships: a word -> count
// map of how many times each word appears in a file, used to exercise the
// serve/query/rebuild/stats commands end to end without requiring a
// caller to write their own Go extension first.
const wordsIndexID fileindex.IndexId = "words"

type wordsIndexer struct{}

func (wordsIndexer) Index(_ context.Context, _ int, content []byte) (map[string]int, error) {
	counts := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		word := strings.ToLower(strings.Trim(scanner.Text(), ".,;:!?\"'()[]{}"))
		if word == "" {
			continue
		}
		counts[word]++
	}
	return counts, nil
}

func wordsExtension() fileindex.Extension[string, int] {
	return fileindex.Extension[string, int]{
		ID:                   wordsIndexID,
		Version:              1,
		KeyDescriptor:        store.StringCodec{},
		ValueExternalizer:    store.IntCodec{},
		Indexer:              wordsIndexer{},
		DependsOnFileContent: true,
	}
}
