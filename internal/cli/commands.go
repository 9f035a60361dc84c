package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragpipe/internal/service"
	"ragpipe/internal/tui"
	"ragpipe/internal/vectorstore"
)

// withApp assembles the app for one command run and closes it afterwards.
func withApp(opts *rootOptions, fn func(app *App) error) error {
	app, err := NewApp(opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func ingest(ctx context.Context, cmd *cobra.Command, opts *rootOptions, app *App, inputs []string) (service.IngestReport, error) {
	docs, err := app.Loader.Load(ctx, inputs)
	if err != nil {
		return service.IngestReport{}, err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ingesting %d documents...\n", len(docs))
	var addOpts []vectorstore.AddOption
	if p := newEmbedProgress(opts.progress, cmd.ErrOrStderr()); p != nil {
		addOpts = append(addOpts, vectorstore.WithProgress(p))
	}
	report, err := app.Service.Ingest(ctx, docs, addOpts...)
	if err != nil {
		return report, err
	}
	fmt.Fprintf(out, "Documents ingested successfully! (%d chunks)\n", report.Chunks)
	return report, nil
}

// answerAll prints a response per query; a failing query does not stop the rest.
func answerAll(ctx context.Context, out io.Writer, app *App, queries []string) {
	for _, q := range queries {
		fmt.Fprintf(out, "\nQuery: %s\n", q)
		resp, err := app.Service.Query(ctx, q)
		if err != nil {
			fmt.Fprintf(out, "Error processing query: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Response: %s\n", resp)
	}
}

func queriesOrDefault(custom []string) []string {
	if len(custom) > 0 {
		return custom
	}
	return DefaultQueries
}

func newLoadAndAskCmd(opts *rootOptions, use, short string) *cobra.Command {
	var queries []string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				ctx := cmd.Context()
				if _, err := ingest(ctx, cmd, opts, app, args); err != nil {
					return err
				}
				answerAll(ctx, cmd.OutOrStdout(), app, queriesOrDefault(queries))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "question to ask (repeatable; defaults to three overview questions)")
	return cmd
}

func newFileCmd(opts *rootOptions) *cobra.Command {
	return newLoadAndAskCmd(opts, "file <path>", "Ingest a PDF or text file and ask questions about it")
}

func newURLCmd(opts *rootOptions) *cobra.Command {
	return newLoadAndAskCmd(opts, "url <pdf-url>", "Download a PDF, ingest it and ask questions about it")
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path|glob|url>...",
		Short: "Add documents to the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				report, err := ingest(cmd.Context(), cmd, opts, app, args)
				if err != nil {
					return err
				}
				if report.Summary != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\nSummary: %s\n", report.Summary)
				}
				return nil
			})
		},
	}
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				resp, err := app.Service.Query(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("query failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove every chunk from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				if err := app.Service.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Index cleared.")
				return nil
			})
		},
	}
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [path|glob|url]...",
		Short: "Ingest optional inputs, then ask questions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				summary := ""
				if len(args) > 0 {
					report, err := ingest(cmd.Context(), cmd, opts, app, args)
					if err != nil {
						return err
					}
					summary = report.Summary
				}
				if summary == "" {
					n, err := app.Service.Count(cmd.Context())
					if err != nil {
						return err
					}
					summary = fmt.Sprintf("%d chunks indexed.", n)
				}
				_, err := tea.NewProgram(tui.New(app.Service, summary), tea.WithAltScreen()).Run()
				return err
			})
		},
	}
}
