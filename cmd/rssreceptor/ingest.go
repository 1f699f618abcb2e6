package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rssreceptor/app"
	"rssreceptor/internal/config"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var name, url string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a single feed once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
				return fmt.Errorf("both --name and --url are required")
			}
			cfg := ctx.cfg
			cfg.Feeds = []config.Feed{{Name: name, URL: url}}
			if err := cfg.Validate(); err != nil {
				return err
			}

			repo, db, err := ctx.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := ctx.startPipeline(repo)
			if err != nil {
				return err
			}
			defer p.close()

			sup := app.NewSupervisor(p.bus, p.fetcher, 1, cfg.ResolveTimeout.Duration(), ctx.log)
			defer sup.Close()

			runErr := ctx.ingest(cmd.Context(), p, sup, cfg.Sources())
			report := sup.Status()
			out := cmd.OutOrStdout()
			for _, st := range report.Feeds {
				fmt.Fprintf(out, "%s: %s (items emitted %d, skipped %d)\n", st.Name, st.State, st.ItemsEmitted, st.ItemsSkipped)
			}
			for _, f := range report.StorageFaults {
				fmt.Fprintf(out, "storage fault: %s %s: %s\n", f.Table, f.Action, f.Error)
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "feed name")
	cmd.Flags().StringVar(&url, "url", "", "feed URL (http, https or file)")
	return cmd
}
