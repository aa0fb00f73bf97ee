package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpl-au/fileindex"
	"github.com/spf13/cobra"
)

func newQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a registered index's keys, values, or file sets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List every key currently present in the words index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(r *fileindex.Registry) error {
				var keys []string
				index, err := fileindex.Lookup[string, int](r, wordsIndexID)
				if err != nil {
					return err
				}
				if err := index.ProcessAllKeys(func(k string) bool {
					keys = append(keys, k)
					return true
				}); err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Println(k)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "values <word>",
		Short: "Show the per-file counts for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(r *fileindex.Registry) error {
				return fileindex.ProcessValues[string, int](context.Background(), r, wordsIndexID, args[0], func(count int, inputIDs []int) bool {
					ids := make([]string, len(inputIDs))
					for i, id := range inputIDs {
						ids[i] = strconv.Itoa(id)
					}
					fmt.Printf("count=%d files=%s\n", count, strings.Join(ids, ","))
					return true
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "files <k1,k2,...>",
		Short: "List input file ids containing all of the given words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(r *fileindex.Registry) error {
				keys := strings.Split(args[0], ",")
				ids, err := fileindex.ProcessFilesContainingAllKeys[string, int](context.Background(), r, wordsIndexID, keys)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			})
		},
	})

	return cmd
}

// withRegistry opens the registry at storeRoot, re-registers the words
// index so Lookup resolves, runs fn, and disposes cleanly.
func withRegistry(fn func(*fileindex.Registry) error) error {
	registry, err := fileindex.NewRegistry(storeRoot)
	if err != nil {
		return err
	}
	defer registry.Dispose()

	if _, err := fileindex.RegisterIndex(registry, wordsExtension()); err != nil {
		return err
	}
	return fn(registry)
}
