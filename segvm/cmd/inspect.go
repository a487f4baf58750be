package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sarchlab/segvm/datarecording"
	"github.com/sarchlab/segvm/mem/trace"
)

func newInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect RECORDING",
		Short: "Summarize a recording made by `translate --record`.",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	inspectCmd.Flags().Int("limit", 20, "Number of page-ins to list, 0 for all.")

	return inspectCmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	reader, err := datarecording.NewReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx := cmd.Context()

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return err
	}

	for _, t := range []string{trace.TranslationTable, trace.PageInTable} {
		if !slices.Contains(tables, t) {
			return fmt.Errorf("%s is not a segvm recording: no table %s",
				args[0], t)
		}
	}

	reader.MapTable(trace.TranslationTable, trace.TranslationEntry{})
	reader.MapTable(trace.PageInTable, trace.PageInEntry{})

	_, translations, err := reader.Query(ctx, trace.TranslationTable,
		datarecording.QueryParams{Limit: 1})
	if err != nil {
		return err
	}

	_, failures, err := reader.Query(ctx, trace.TranslationTable,
		datarecording.QueryParams{Where: "Error != ''", Limit: 1})
	if err != nil {
		return err
	}

	pageIns, total, err := reader.Query(ctx, trace.PageInTable,
		datarecording.QueryParams{OrderBy: "rowid", Limit: limit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "translations: %d (%d failed)\n", translations, failures)
	fmt.Fprintf(out, "page-ins: %d\n", total)

	for _, p := range pageIns {
		entry := p.(*trace.PageInEntry)
		fmt.Fprintf(out, "  %s s=%d p=%d block=%d frame=%d translation=%s\n",
			entry.Unit, entry.Segment, entry.Page, entry.Block, entry.Frame,
			entry.TranslationID)
	}

	return nil
}
