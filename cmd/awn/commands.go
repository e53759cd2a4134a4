package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/app"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/buildinfo"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)
	client := func() *apiClient { return newAPIClient(serverURL, timeout) }

	root := &cobra.Command{
		Use:           "awn",
		Short:         "awn pilote un serveur awn-server (sélection, vérification manuelle).",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("AWN_SERVER_URL", "http://127.0.0.1:3000"), "URL du serveur")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout HTTP")

	root.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Vérifie que le serveur répond.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c := client()
				var body map[string]string
				if err := c.do(c.http.R().SetContext(cmd.Context()), http.MethodGet, "/api/v1/health", &body); err != nil {
					return err
				}
				fmt.Fprintln(out, body["status"])
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Affiche la version du CLI et du serveur.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var server buildinfo.Info
				c := client()
				if err := c.do(c.http.R().SetContext(cmd.Context()), http.MethodGet, "/api/v1/version", &server); err != nil {
					return err
				}
				fmt.Fprintf(out, "client: %s\nserver: %s\n", buildinfo.Current(), server)
				return nil
			},
		},
		&cobra.Command{
			Use:   "titles",
			Short: "Liste les titres du dernier snapshot (* = suivi).",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c := client()
				var titles []domain.TitleOption
				if err := c.do(c.http.R().SetContext(cmd.Context()), http.MethodGet, "/api/v1/titles", &titles); err != nil {
					return err
				}
				var tracking app.TrackingDTO
				if err := c.do(c.http.R().SetContext(cmd.Context()), http.MethodGet, "/api/v1/tracked", &tracking); err != nil {
					return err
				}
				tracked := domain.NewTrackedSet(tracking.Tracked...)

				t := newTable(out)
				t.AppendHeader(table.Row{"#", "Title", "Tracked", "Cover"})
				for i, o := range titles {
					mark := ""
					if tracked.Contains(o.Title) {
						mark = "*"
					}
					t.AppendRow(table.Row{i + 1, o.Title, mark, o.Cover})
				}
				t.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "tracked",
			Short: "Affiche la liste suivie.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c := client()
				var tracking app.TrackingDTO
				if err := c.do(c.http.R().SetContext(cmd.Context()), http.MethodGet, "/api/v1/tracked", &tracking); err != nil {
					return err
				}
				if !tracking.Configured {
					fmt.Fprintln(out, "Aucune sélection enregistrée.")
					return nil
				}
				printTracked(out, tracking.Tracked)
				return nil
			},
		},
		&cobra.Command{
			Use:   "track [title...]",
			Short: "Remplace la liste suivie (sans argument : désactive les notifications).",
			RunE: func(cmd *cobra.Command, args []string) error {
				c := client()
				var tracking app.TrackingDTO
				req := c.http.R().SetContext(cmd.Context()).SetBody(map[string][]string{"tracked": append([]string{}, args...)})
				if err := c.do(req, http.MethodPut, "/api/v1/tracked", &tracking); err != nil {
					return err
				}
				printTracked(out, tracking.Tracked)
				return nil
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Lance une vérification immédiate.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c := client()
				var res app.CycleResult
				if err := c.do(c.http.R().SetContext(cmd.Context()), http.MethodPost, "/api/v1/check", &res); err != nil {
					return err
				}
				printCycle(out, res)
				return nil
			},
		},
	)
	return root
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func printTracked(out io.Writer, titles []string) {
	if len(titles) == 0 {
		fmt.Fprintln(out, "Liste vide : notifications désactivées.")
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Tracked"})
	for _, title := range titles {
		t.AppendRow(table.Row{title})
	}
	t.Render()
}

func printCycle(out io.Writer, res app.CycleResult) {
	fmt.Fprintf(out, "cycle %s: %s (%d titles, %d new)\n", res.ID, res.Outcome, res.Titles, len(res.Events))
	if len(res.Events) > 0 {
		t := newTable(out)
		t.AppendHeader(table.Row{"Source", "Title", "Season", "Episode"})
		for _, ev := range res.Events {
			t.AppendRow(table.Row{ev.Source, ev.Title, ev.State.Season, ev.State.Episode})
		}
		t.Render()
	}
	for _, msg := range []string{res.Error, res.PersistError, res.NotifyError} {
		if msg != "" {
			fmt.Fprintln(out, "warning:", msg)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
