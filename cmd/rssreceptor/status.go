package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"rssreceptor/cli/control"
	"rssreceptor/domain"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ingestion status of the running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := control.NewClient(ctx.cfg.ControlAddr).Status()
			if err != nil {
				return fmt.Errorf("query %s: %w", ctx.cfg.ControlAddr, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatus(report.Feeds))
			if n := len(report.StorageFaults); n > 0 {
				last := report.StorageFaults[n-1]
				fmt.Fprintf(out, "\n%d storage fault(s), latest: %s %s: %s\n", n, last.Table, last.Action, last.Error)
			}
			return nil
		},
	}
}

func renderStatus(feeds []domain.FeedStatus) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Feed", "State", "ID", "Items", "Skipped", "Error"})
	for _, st := range feeds {
		id := ""
		if st.FeedID != 0 {
			id = strconv.FormatInt(int64(st.FeedID), 10)
		}
		tw.AppendRow(table.Row{st.Name, string(st.State), id, st.ItemsEmitted, st.ItemsSkipped, st.Error})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}
