package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No conversions recorded")
				return nil
			}
			if limit > 0 && len(jobs) > limit {
				jobs = jobs[len(jobs)-limit:]
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				encoded := formatLabel(job.EncodedFormat)
				if job.Fallback {
					encoded = fmt.Sprintf("%s (wanted %s)", encoded, formatLabel(job.RequestedFormat))
				}
				rows = append(rows, []string{
					job.ID,
					job.CreatedAt.Local().Format(time.DateTime),
					encoded,
					fmt.Sprintf("%.2f", job.Quality),
					byteCountLabel(len(job.ConvertedBytes)),
				})
			}

			rendered := renderTable(
				[]string{"ID", "CREATED", "FORMAT", "QUALITY", "SIZE"},
				rows,
				3, 4,
			)
			fmt.Fprintln(out, rendered)
			if isTerminal(out) {
				fmt.Fprintf(out, "%d conversion(s)\n", len(jobs))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N conversions")
	return cmd
}

func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
