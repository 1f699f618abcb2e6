package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFeedsCommand(ctx *commandContext) *cobra.Command {
	var num int
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "List stored feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, db, err := ctx.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			feeds, err := repo.ListFeeds(cmd.Context(), num)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, "# Available RSS Feeds\n\n")
			for i, f := range feeds {
				fmt.Fprintf(out, "%d. Name: %s\n   URL: %s\n   Title: %s\n\n", i+1, f.Name, f.URL, f.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&num, "num", 0, "limit number of feeds (0 = all)")
	return cmd
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var feedName string
	var num int
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Show the latest items of a feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(feedName) == "" {
				return fmt.Errorf("--feed-name is required")
			}
			repo, db, err := ctx.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			feed, err := repo.GetFeedByName(cmd.Context(), feedName)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("feed %q not found", feedName)
			}
			if err != nil {
				return err
			}
			items, err := repo.ListItemsByFeed(cmd.Context(), feed.ID, num)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Feed: %s\n\n", feed.Name)
			for i, a := range items {
				date := "unknown"
				if !a.PublishedAt.IsZero() {
					date = a.PublishedAt.Format("2006-01-02")
				}
				fmt.Fprintf(out, "%d. [%s] %s\n   %s\n\n", i+1, date, a.Title, a.Link)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&feedName, "feed-name", "", "feed name")
	cmd.Flags().IntVar(&num, "num", 3, "number of items (0 = all)")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a feed record; its items are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			repo, db, err := ctx.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := repo.DeleteFeed(cmd.Context(), name)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("feed %q not found", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted feed %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "feed name")
	return cmd
}
