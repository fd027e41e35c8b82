package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"powerplay/internal/docstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show work items and their pipeline position",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilter(statusFilter)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *docstore.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No work items.")
					return nil
				}
				fmt.Fprintln(out, renderItemsTable(items, time.Now().UTC()))
				fmt.Fprintf(out, "%d total: %d unclaimed, %d processing, %d waiting, %d done, %d failed\n",
					summary.Total, summary.Unclaimed, summary.Processing,
					summary.Waiting, summary.Done, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Only show items in these statuses")
	return cmd
}

func parseStatusFilter(values []string) ([]docstore.Status, error) {
	statuses := make([]docstore.Status, 0, len(values))
	for _, value := range values {
		status, ok := docstore.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func renderItemsTable(items []*docstore.Item, now time.Time) string {
	headers := []string{"ITEM", "STATUS", "SCORE", "OUTPUTS", "LOCK", "ERROR", "UPDATED"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			string(item.Status),
			formatScore(item),
			formatOutputs(item),
			formatLock(item, now),
			formatError(item),
			item.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return renderTable(headers, rows, aligns)
}

func formatScore(item *docstore.Item) string {
	if item.Score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *item.Score)
}

func formatOutputs(item *docstore.Item) string {
	if len(item.Outputs) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(item.Outputs))
	for key := range item.Outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func formatLock(item *docstore.Item, now time.Time) string {
	if item.Lock == nil {
		return "-"
	}
	age := now.Sub(item.Lock.FreshAt()).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return fmt.Sprintf("%s (%s ago)", item.Lock.Owner, age)
}

func formatError(item *docstore.Item) string {
	if item.Error == nil {
		return "-"
	}
	message := item.Error.Message
	if len(message) > 40 {
		message = message[:37] + "..."
	}
	return item.Error.Phase + ": " + message
}
