package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/wikiblob/internal/commands"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/lehigh-university-libraries/wikiblob/internal/logging"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath  string
	verbose     bool
	logFile     string
	driver      string
	dsn         string
	tablePrefix string
	encoding    string
	unescape    string
	dumps       []string
	pages       string
}

// rootState is shared by the root hooks and the subcommands.
type rootState struct {
	flags     globalFlags
	cfg       *config.Config
	logCloser io.Closer
}

// closeLog closes the JSON log file. It runs as a cobra finalizer, so failed
// commands close the file too.
func (s *rootState) closeLog() {
	if s.logCloser == nil {
		return
	}
	if err := s.logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
	s.logCloser = nil
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootState{})
}

func newRootCmd(state *rootState) *cobra.Command {
	state.cfg = config.Default()
	flags := &state.flags
	cfg := state.cfg
	cobra.OnFinalize(state.closeLog)

	cmd := &cobra.Command{
		Use:   "wikiblob",
		Short: "Recover page content from MediaWiki text-table blobs",
		Long: `Wikiblob recovers page content from a MediaWiki export whose text table
holds whole SQL dump segments instead of one revision per row.

Each page's content address names a record id; wikiblob finds the record's
tuple inside the blobs, decodes it and writes the results, then classifies and
analyzes the recovered bibliography.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logFile := flags.logFile
			if logFile == "auto" {
				logFile = logging.DefaultFile("logs", time.Now())
			}
			closer, err := logging.Setup(logging.Options{Verbose: flags.verbose, File: logFile})
			if err != nil {
				return err
			}
			state.logCloser = closer

			loaded, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			loaded.ApplyEnv()
			applyGlobalFlags(cmd, flags, loaded)
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			*cfg = *loaded
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	pf.BoolVar(&flags.verbose, "verbose", false, "Verbose logging")
	pf.StringVar(&flags.logFile, "log-file", "", "Also write JSON logs to this file (\"auto\" for logs/wikiblob_<timestamp>.log)")
	pf.StringVar(&flags.driver, "driver", "mysql", "Database driver (mysql, sqlite3)")
	pf.StringVar(&flags.dsn, "dsn", "", "Database DSN")
	pf.StringVar(&flags.tablePrefix, "table-prefix", "zweig_", "MediaWiki table prefix")
	pf.StringVar(&flags.encoding, "encoding", "latin1", "Payload encoding (latin1, cp1252, utf-8)")
	pf.StringVar(&flags.unescape, "unescape", "quotes", "Field unescaping (quotes, mysql)")
	pf.StringArrayVar(&flags.dumps, "dump", nil, "Read blobs from dump files instead of a database (repeatable)")
	pf.StringVar(&flags.pages, "pages", "", "Page list CSV (page_id,page_title,content_address), required with --dump")

	cmd.AddCommand(commands.NewExtractCmd(cfg))
	cmd.AddCommand(commands.NewLocateCmd(cfg))
	cmd.AddCommand(commands.NewImportCmd(cfg))
	cmd.AddCommand(commands.NewInspectCmd(cfg))
	cmd.AddCommand(commands.NewAnalyzeCmd())
	cmd.AddCommand(commands.NewReportCmd())

	return cmd
}

// applyGlobalFlags copies explicitly set flags over file and environment
// values.
func applyGlobalFlags(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("driver") {
		cfg.Store.Driver = flags.driver
	}
	if changed("dsn") {
		cfg.Store.DSN = flags.dsn
	}
	if changed("table-prefix") {
		cfg.Store.TablePrefix = flags.tablePrefix
	}
	if changed("encoding") {
		cfg.Extract.Encoding = flags.encoding
	}
	if changed("unescape") {
		cfg.Extract.Unescape = flags.unescape
	}
	if changed("dump") {
		cfg.Store.Dumps = flags.dumps
	}
	if changed("pages") {
		cfg.Store.Pages = flags.pages
	}
}
