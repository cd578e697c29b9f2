package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/controller"
	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/tui"
)

func (a *app) listCommand() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List links, optionally filtered by prefix.",
		Long: `Lists every link with its click count and short URL.

Example:
  tinylink list --query docs`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			if err := a.list.Load(ctx); err != nil {
				return a.fail(a.list.View().LoadError, err)
			}
			a.list.SetQuery(query)

			view := a.list.View()
			if view.EmptyMessage != "" {
				fmt.Fprintln(a.stdout, view.EmptyMessage)
				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tLONG URL\tCLICKS\tLAST CLICKED\tSHORT URL")
			for _, link := range view.Links {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					link.Code,
					link.LongURL,
					link.Clicks,
					controller.LastClicked(link),
					model.ShortURL(a.cfg.BaseURL, link.Code),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show links whose code or URL starts with this")
	return cmd
}

func (a *app) createCommand() *cobra.Command {
	var longURL, code string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Shorten a URL.",
		Long: `Creates a short link for a long URL and prints its short URL.
Without --code the server generates one.

Example:
  tinylink create --url "https://go.dev/doc/" --code godocs1`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			// load the collection so a taken custom code is caught before the request
			if code != "" {
				if err := a.list.Load(ctx); err != nil {
					a.logger.Warn("Skipping duplicate check, links could not be loaded", zap.Error(err))
				}
			}

			a.create.SetURL(longURL)
			a.create.SetCode(code)
			state := a.create.Submit(ctx)
			if state.Phase != controller.FormSuccess {
				return a.fail(state.Message, nil)
			}

			fmt.Fprintln(a.stdout, state.Message)
			fmt.Fprintln(a.stdout, model.ShortURL(a.cfg.BaseURL, state.Created.Code))
			return nil
		},
	}
	cmd.Flags().StringVarP(&longURL, "url", "u", "", "the long URL to shorten")
	cmd.Flags().StringVarP(&code, "code", "c", "", "optional custom code, 6-8 letters or digits")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a link.",
		Long: `Deletes the link with the given code.

Example:
  tinylink delete --code godocs1`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return usageError("delete requires --code")
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			if err := a.list.Delete(ctx, code); err != nil {
				return a.fail(a.list.View().DeleteError, err)
			}
			fmt.Fprintf(a.stdout, "Deleted %s.\n", code)
			return nil
		},
	}
	cmd.Flags().StringVarP(&code, "code", "c", "", "code of the link to delete")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show click statistics for a link.",
		Long: `Shows the target, creation time, click counts and last click of a link.

Example:
  tinylink stats --code godocs1`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return usageError("stats requires --code")
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			view := a.stats.Load(ctx, code)
			if view.Phase != controller.StatsFound {
				return a.fail(view.Message, nil)
			}

			link := view.Link
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Code:\t%s\n", link.Code)
			fmt.Fprintf(w, "Short URL:\t%s\n", view.ShortURL)
			fmt.Fprintf(w, "Long URL:\t%s\n", link.LongURL)
			fmt.Fprintf(w, "Created:\t%s\n", controller.FormatTimestamp(link.CreatedAt, "-"))
			fmt.Fprintf(w, "Total clicks:\t%d\n", link.Clicks)
			if link.TodayClicks != nil {
				fmt.Fprintf(w, "Today:\t%d\n", *link.TodayClicks)
			}
			if link.WeekClicks != nil {
				fmt.Fprintf(w, "This week:\t%d\n", *link.WeekClicks)
			}
			fmt.Fprintf(w, "Last clicked:\t%s\n", controller.LastClicked(*link))
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&code, "code", "c", "", "code of the link")
	return cmd
}

func (a *app) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			view := a.health.Check(ctx)
			if view.Phase != controller.HealthReady || view.Health == nil {
				return a.fail(view.Message, nil)
			}

			h := view.Health
			status := "ok"
			if !h.OK {
				status = "degraded"
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Status:\t%s\n", status)
			fmt.Fprintf(w, "Version:\t%s\n", h.Version)
			fmt.Fprintf(w, "Uptime:\t%s\n", h.Uptime)
			fmt.Fprintf(w, "Checked:\t%s\n", controller.FormatTimestamp(&h.LastChecked, "-"))
			if err := w.Flush(); err != nil {
				return err
			}
			if !h.OK {
				return errors.New("backend reports degraded health")
			}
			return nil
		},
	}
}

func (a *app) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard (the default).",
		Args:  noArgs,
		RunE:  a.runTUI,
	}
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(tui.Options{
		List:    a.list,
		Create:  a.create,
		Stats:   a.stats,
		Health:  a.health,
		BaseURL: a.cfg.BaseURL,
		Timeout: a.cfg.RequestTimeout,
	})
}
