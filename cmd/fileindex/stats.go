package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jpl-au/fileindex"
	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print per-index rebuild status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(storeRoot)
		},
	}
}

func runStats(storeDir string) error {
	registry, err := fileindex.NewRegistry(storeDir)
	if err != nil {
		return err
	}
	defer registry.Dispose()

	if _, err := fileindex.RegisterIndex(registry, wordsExtension()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "INDEX\tSTATUS\tCONTENT-DEPENDENT")
	for _, id := range registry.RegisteredIndexIDs() {
		contentDependent := false
		for _, cd := range registry.ContentDependentIndices() {
			if cd == id {
				contentDependent = true
				break
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%v\n", id, registry.Status(id), contentDependent)
	}
	return nil
}
