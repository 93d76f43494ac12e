package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coleifer/scout/internal/api"
	"github.com/coleifer/scout/internal/config"
	"github.com/coleifer/scout/internal/storage"
)

var (
	serveHost        string
	servePort        int
	serveURLPrefix   string
	serveStem        string
	serveDebug       bool
	servePaginateBy  int
	serveAPIKey      string
	serveCacheSizeMB float64
	serveFsync       bool
	serveJournalMode string
	serveLogfile     string
)

// serveCmd starts the HTTP listener. It accepts the database path as
// its single positional argument, falling back to SCOUT_DATABASE and
// the config file's DATABASE key when omitted.
var serveCmd = &cobra.Command{
	Use:   "serve [database]",
	Short: "Run the Scout search service",
	Long: `serve opens (or creates, on first run) the database file and binds
an HTTP listener exposing the index and document REST surface.

Examples:
  scoutd serve ./scout.db
  scoutd serve --host 0.0.0.0 --port 9000 /var/lib/scout/scout.db
  SCOUT_DATABASE=/var/lib/scout/scout.db scoutd serve
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "", "listen address")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port")
	serveCmd.Flags().StringVarP(&serveURLPrefix, "url-prefix", "u", "", "path prefix for all routes")
	serveCmd.Flags().StringVarP(&serveStem, "stem", "s", "", "FTS tokenizer: simple or porter")
	serveCmd.Flags().BoolVarP(&serveDebug, "debug", "d", false, "add source file and line to log output")
	serveCmd.Flags().IntVar(&servePaginateBy, "paginate-by", 0, "page size (1..1000)")
	serveCmd.Flags().StringVarP(&serveAPIKey, "api-key", "k", "", "required API key (unset disables auth)")
	serveCmd.Flags().Float64VarP(&serveCacheSizeMB, "cache-size", "C", 0, "SQLite page cache size in MB")
	serveCmd.Flags().BoolVarP(&serveFsync, "fsync", "f", false, "force full fsync on every commit (synchronous=FULL)")
	serveCmd.Flags().StringVarP(&serveJournalMode, "journal-mode", "j", "", "SQLite journal mode (default WAL)")
	serveCmd.Flags().StringVarP(&serveLogfile, "logfile", "l", "", "write logs to this file instead of stderr")
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(resolveConfigFile(), serveCmd.Flags())
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		cfg.Database = args[0]
	}
	if cfg.Database == "" {
		if env := os.Getenv("SCOUT_DATABASE"); env != "" {
			cfg.Database = env
		}
	}
	if cfg.Database == "" {
		return fmt.Errorf("no database path given (positional argument, SCOUT_DATABASE, or config DATABASE key)")
	}

	if serveFsync {
		cfg.Pragmas.Synchronous = 2 // FULL
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if cfg.Logfile != "" {
		f, err := os.OpenFile(cfg.Logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open logfile: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := api.New(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listener failed: %w", err)
		}
		return nil
	case <-sigCh:
		log.Println("scoutd: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// openDatabase opens cfg.Database with the schema/pragma options the
// loaded configuration selects.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	opts := storage.Options{
		SearchExtension: strings.ToUpper(cfg.SearchExtension),
		Stem:            strings.ToLower(cfg.Stem),
	}
	db, err := storage.Open(cfg.Database, opts, cfg.Pragmas.JournalMode, cfg.Pragmas.CacheSizeMB, cfg.Pragmas.Synchronous)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// resolveConfigFile applies --config / SCOUT_CONFIG precedence (the
// flag wins) ahead of handing the path to config.Loader.
func resolveConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv("SCOUT_CONFIG")
}
