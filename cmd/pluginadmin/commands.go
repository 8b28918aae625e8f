// ABOUTME: Repository commands that talk to a running server through the HTTP client.
// ABOUTME: Implements list, show, new, edit, delete, import and the local logs view.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/2389/pluginadmin/internal/client"
	"github.com/2389/pluginadmin/internal/config"
	"github.com/2389/pluginadmin/internal/editor"
	"github.com/2389/pluginadmin/internal/importer"
	"github.com/2389/pluginadmin/internal/prompt"
	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/selection"
	"github.com/2389/pluginadmin/internal/store"
	"github.com/2389/pluginadmin/internal/wire"
	"github.com/spf13/cobra"
)

func newRepositoryCommands(cfg *config.Config) []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins with their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPlugins(cmd.Context(), newClient(cfg), cmd.OutOrStdout())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show one plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPlugin(cmd.Context(), newClient(cfg), args[0], cmd.OutOrStdout())
		},
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a plugin interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), editor.New(newClient(cfg)), cmd.OutOrStdout())
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit NAME",
		Short: "Edit a plugin interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := editor.Load(cmd.Context(), newClient(cfg), args[0])
			if errors.Is(err, editor.ErrNotFound) {
				return fmt.Errorf("plugin %q not found", args[0])
			}
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), ed, cmd.OutOrStdout())
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete NAME...",
		Short: "Delete plugins in one batch",
		Long: `Delete every named plugin in a single request. Either all of them are
deleted or, if any request fails, none are.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deletePlugins(cmd.Context(), newClient(cfg), args, cmd.OutOrStdout())
		},
	}

	var importName, importURL string
	var importUpdate bool
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace a plugin's parameters from a JSON or YAML file",
		Long: `Read a parameter file ({"params": [...]} in JSON, or the same shape in YAML)
and save it as the parameter list of a new plugin, or of an existing one
with --update.

Examples:
  pluginadmin import params.yaml --name weather --url http://weather.local
  pluginadmin import params.json --name weather --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if importName == "" {
				return fmt.Errorf("--name is required")
			}
			_, err := importPlugin(cmd.Context(), newClient(cfg), importRequest{
				Path:   args[0],
				Name:   importName,
				URL:    importURL,
				Update: importUpdate,
			}, cmd.OutOrStdout())
			return err
		},
	}
	importCmd.Flags().StringVar(&importName, "name", "", "Plugin name")
	importCmd.Flags().StringVar(&importURL, "url", "", "Plugin URL (required for new plugins)")
	importCmd.Flags().BoolVar(&importUpdate, "update", false, "Update an existing plugin instead of creating one")

	var logsQuery store.RequestLogQuery
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent repository API calls from the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			return printLogs(s, &logsQuery, cmd.OutOrStdout())
		},
	}
	logsCmd.Flags().IntVarP(&logsQuery.Limit, "limit", "n", 20, "Number of entries")
	logsCmd.Flags().StringVar(&logsQuery.PluginName, "plugin", "", "Only calls addressing this plugin")
	logsCmd.Flags().BoolVar(&logsQuery.ErrorsOnly, "errors", false, "Only failed calls")

	return []*cobra.Command{listCmd, showCmd, newCmd, editCmd, deleteCmd, importCmd, logsCmd}
}

func listPlugins(ctx context.Context, c *client.Client, w io.Writer) error {
	plugins, err := c.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plugins: %w", err)
	}
	fmt.Fprintln(w, renderPlugins(plugins))
	return nil
}

func showPlugin(ctx context.Context, c *client.Client, name string, w io.Writer) error {
	p, err := c.Get(ctx, name)
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("plugin %q not found", name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, renderPlugin(p))
	return nil
}

func runSession(ctx context.Context, ed *editor.Editor, w io.Writer) error {
	if !prompt.IsInteractive() {
		return fmt.Errorf("interactive editing needs a terminal; use 'pluginadmin import' for scripted changes")
	}
	_, err := prompt.NewSession(ed, prompt.TerminalPrompter{}, w).Run(ctx)
	if errors.Is(err, prompt.ErrCancelled) {
		fmt.Fprintln(w, "No changes saved")
		return nil
	}
	return err
}

// deletePlugins selects the named plugins in a ledger and removes them in
// one batch. Unknown names abort before anything is sent.
func deletePlugins(ctx context.Context, c *client.Client, names []string, w io.Writer) error {
	all, err := c.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plugins: %w", err)
	}
	known := make(map[string]bool, len(all))
	for _, p := range all {
		known[p.Key()] = true
	}

	ledger := selection.New()
	for _, name := range names {
		if !known[name] {
			return fmt.Errorf("plugin %q not found", name)
		}
		ledger.Select(name)
	}

	remaining, err := ledger.DeleteSelected(ctx, c, all)
	if err != nil {
		return fmt.Errorf("delete failed, nothing was deleted: %w", err)
	}
	fmt.Fprintf(w, "Deleted %d plugins, %d remaining\n", len(all)-len(remaining), len(remaining))
	return nil
}

type importRequest struct {
	Path   string
	Name   string
	URL    string
	Update bool
}

func importPlugin(ctx context.Context, c *client.Client, req importRequest, w io.Writer) (wire.Plugin, error) {
	params, err := importer.LoadFile(req.Path)
	if err != nil {
		return wire.Plugin{}, err
	}

	var ed *editor.Editor
	if req.Update {
		ed, err = editor.Load(ctx, c, req.Name)
		if errors.Is(err, editor.ErrNotFound) {
			return wire.Plugin{}, fmt.Errorf("plugin %q not found", req.Name)
		}
		if err != nil {
			return wire.Plugin{}, err
		}
	} else {
		ed = editor.New(c)
		if err := ed.SetName(req.Name); err != nil {
			return wire.Plugin{}, err
		}
	}
	if req.URL != "" {
		if err := ed.SetURL(req.URL); err != nil {
			return wire.Plugin{}, err
		}
	}
	if _, err := ed.ImportParameters(params); err != nil {
		return wire.Plugin{}, err
	}

	saved, err := ed.Save(ctx)
	var verr *record.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(w, "Cannot save:")
		for _, v := range verr.Violations {
			fmt.Fprintf(w, "  %s: %s\n", v.Field, v.Message())
		}
		return wire.Plugin{}, err
	}
	if err != nil {
		return wire.Plugin{}, err
	}
	fmt.Fprintf(w, "Saved plugin %s with %d parameters\n", saved.Name, len(saved.Parameters))
	return saved, nil
}

// LogSource is the request log storage the logs command reads.
type LogSource interface {
	GetRequestLogs(q *store.RequestLogQuery) ([]*store.RequestLog, error)
	GetRequestLogStats() (*store.RequestLogStats, error)
}

func printLogs(src LogSource, q *store.RequestLogQuery, w io.Writer) error {
	logs, err := src.GetRequestLogs(q)
	if err != nil {
		return fmt.Errorf("failed to read request logs: %w", err)
	}
	stats, err := src.GetRequestLogStats()
	if err != nil {
		return fmt.Errorf("failed to read request log stats: %w", err)
	}
	fmt.Fprintln(w, renderLogs(logs, stats))
	return nil
}

