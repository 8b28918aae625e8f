// ABOUTME: Entry point for the pluginadmin server and CLI.
// ABOUTME: Wires store, repository API and admin UI, and registers the cobra commands.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/2389/pluginadmin/internal/admin"
	"github.com/2389/pluginadmin/internal/api"
	"github.com/2389/pluginadmin/internal/client"
	"github.com/2389/pluginadmin/internal/config"
	"github.com/2389/pluginadmin/internal/logging"
	"github.com/2389/pluginadmin/internal/seed"
	"github.com/2389/pluginadmin/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

const defaultSeedCount = 5

func main() {
	cfg := config.Load()
	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pluginadmin",
		Short: "Plugin repository server and admin tools",
		Long: `pluginadmin manages a repository of plugin definitions: a name, an endpoint
URL and a list of typed parameters with optional defaults.

It serves the repository API and a browser admin UI over a local SQLite
database, and edits a running repository from the terminal.

Quick Start:
  pluginadmin seed          # Add sample plugins
  pluginadmin serve         # Start server on port 9000
  pluginadmin list          # List plugins from the running server
  pluginadmin new           # Create a plugin interactively`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPath, "db", "d", cfg.DBPath, "Database path (serve, seed, reset, logs)")
	rootCmd.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "Repository server URL (list, show, new, edit, delete, import)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Repository request timeout")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the pluginadmin HTTP server on the specified port.

The server provides:
  • Repository API at http://localhost:PORT/plugins
  • Admin UI at http://localhost:PORT/admin
  • Health check at http://localhost:PORT/healthz

Environment Variables:
  PLUGINADMIN_PORT      Server port (default: 9000)
  PLUGINADMIN_DB_PATH   Database path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
	serveCmd.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")

	seedCmd := &cobra.Command{
		Use:   "seed [count]",
		Short: "Seed the database with sample plugins",
		Long: `Add sample plugins to the database.

AI-Powered Generation:
  Set OPENAI_API_KEY to generate plugins with OpenAI (model from OPENAI_MODEL).
  Falls back to built-in sample plugins if no API key is provided or the
  request fails.

Plugins whose name already exists are skipped. Use 'pluginadmin reset' to
start from an empty database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := defaultSeedCount
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("count must be a positive number, got %q", args[0])
				}
				count = n
			}
			return runSeed(cmd.Context(), cfg, count)
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database (wipe and reseed)",
		Long: `Delete every plugin and request log, then seed fresh sample plugins.

Warning: This permanently deletes all data in the database!`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(serveCmd, seedCmd, resetCmd)
	rootCmd.AddCommand(newRepositoryCommands(cfg)...)
	return rootCmd
}

func runServe(cfg *config.Config) error {
	dbPath, err := config.ValidateDBPath(cfg.DBPath)
	if err != nil {
		return err
	}

	srv, err := newServer(dbPath)
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	log.Printf("pluginadmin server listening on %s", addr)
	log.Printf("Database: %s", dbPath)
	log.Printf("Admin UI: http://localhost%s/admin", addr)
	return http.ListenAndServe(addr, srv)
}

func newServer(dbPath string) (http.Handler, error) {
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(s))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	// Favicon
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api.NewHandlers(s).RegisterRoutes(r)
	admin.NewHandlers(admin.NewLocalRepository(s), s).RegisterRoutes(r)

	return r, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	dbPath, err := config.ValidateDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store.New(dbPath)
}

func runSeed(ctx context.Context, cfg *config.Config, count int) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return seedData(ctx, s, seed.NewGenerator(cfg.OpenAIKey, cfg.OpenAIModel), count)
}

func runReset(ctx context.Context, cfg *config.Config) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Reset(); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return seedData(ctx, s, seed.NewGenerator(cfg.OpenAIKey, cfg.OpenAIModel), defaultSeedCount)
}

func seedData(ctx context.Context, s *store.Store, g *seed.Generator, count int) error {
	log.Printf("Seeding database with %d sample plugins...", count)
	res, err := seed.Seed(ctx, s, g.Generate(ctx, count))
	if err != nil {
		return err
	}
	if res.Skipped > 0 {
		log.Printf("Skipped %d plugins that already exist. Use 'pluginadmin reset' to clear and reseed.", res.Skipped)
	}
	log.Printf("Seeding complete! Created %d plugins", res.Created)
	return nil
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.URL, cfg.Timeout)
}
