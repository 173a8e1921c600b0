package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/fhir2swagger/internal/config"
	"github.com/ehr/fhir2swagger/internal/domain/apidoc"
	"github.com/ehr/fhir2swagger/internal/domain/searchparameter"
	"github.com/ehr/fhir2swagger/internal/domain/structuredefinition"
	"github.com/ehr/fhir2swagger/internal/platform/db"
	"github.com/ehr/fhir2swagger/internal/platform/deref"
	"github.com/ehr/fhir2swagger/internal/platform/merge"
	"github.com/ehr/fhir2swagger/internal/platform/openapi"
	"github.com/ehr/fhir2swagger/internal/platform/schema"
	"github.com/ehr/fhir2swagger/internal/platform/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fhir-swagger",
		Short:        "Generate Swagger 2.0 API documents from the FHIR JSON Schema",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("schema", "./schemas/fhir.schema.json", "FHIR JSON Schema document")
	pf.String("search-params", "./schemas/search-parameters.json", "FHIR SearchParameter bundle")
	pf.String("profile-dir", "./schemas/Davinci-drug-formulary", "implementation guide package directory")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(generateCmd())
	root.AddCommand(resourcesCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	return root
}

// setup loads and validates the configuration for cmd and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, newLogger(cfg, cmd.ErrOrStderr()), nil
}

// newLogger writes JSON lines, or console output in development and when
// out is a terminal.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if cfg.IsDev() || tty {
		out = zerolog.ConsoleWriter{Out: out, NoColor: !tty}
	}
	return zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <resource>...",
		Short: "Generate one Swagger document per FHIR resource or profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			profile, _ := cmd.Flags().GetBool("profile")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := buildService(ctx, cfg, logger, profile)
			if err != nil {
				return err
			}
			defer cleanup()

			batch, err := svc.Generate(ctx, apidoc.Request{Names: args, Profile: profile, Combine: cfg.Combine})
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), cfg.OutputDir, batch)

			if batch.AllFailed() {
				return fmt.Errorf("all %d requested documents failed", len(batch.Results))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "./outputs", "output directory")
	f.String("format", "json", "output format (json or yaml)")
	f.Bool("combine", false, "also merge every generated document into one")
	f.Bool("security", false, "add the Bearer security definition")
	f.Bool("validate", false, "validate every generated document")
	f.String("patch", "", "RFC 6902 JSON patch applied to every document")
	f.Bool("profile", false, "treat arguments as implementation guide profile ids")
	f.Int("rounds", deref.DefaultRounds, "traversal round count")
	f.String("host", openapi.DefaultHost, "Swagger host")
	return cmd
}

// buildService wires the generation pipeline. Only a schema that cannot be
// loaded is fatal; missing search parameters degrade to an empty catalog.
func buildService(ctx context.Context, cfg *config.Config, logger zerolog.Logger, profile bool) (*apidoc.Service, func(), error) {
	cleanup := func() {}

	idx, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return nil, cleanup, err
	}
	logger.Debug().Str("schema", idx.ID()).Int("definitions", len(idx.Names())).Msg("schema loaded")

	engine := deref.NewEngine(schema.NewResolver(idx),
		deref.WithRounds(cfg.TraversalRounds),
		deref.WithLogger(logger),
	)
	gen := openapi.NewGenerator(engine,
		openapi.WithHost(cfg.Host),
		openapi.WithSecurity(cfg.Security),
		openapi.WithLogger(logger),
	)

	catalog, err := searchparameter.LoadBundle(cfg.SearchParamsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("search parameters unavailable, search operations will have no parameters")
		catalog = searchparameter.NewCatalog()
	}
	logger.Debug().Str("path", cfg.SearchParamsPath).Int("search_parameters", catalog.Len()).Msg("search parameters loaded")

	format, err := apidoc.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, cleanup, err
	}
	opts := []apidoc.Option{
		apidoc.WithFormat(format),
		apidoc.WithValidation(cfg.Validate),
		apidoc.WithLogger(logger),
		apidoc.WithRepositories(apidoc.NewFileRepo(cfg.OutputDir)),
	}

	if cfg.PatchFile != "" {
		overlay, err := merge.LoadOverlay(cfg.PatchFile)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, apidoc.WithOverlay(overlay))
	}

	if profile {
		guide, err := searchparameter.LoadDir(cfg.ProfileDir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", cfg.ProfileDir).Msg("implementation guide search parameters unavailable")
		}
		opts = append(opts, apidoc.WithProfiles(structuredefinition.NewDirRepository(cfg.ProfileDir), guide))
	}

	if cfg.DatabaseURL != "" {
		pool, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		opts = append(opts, apidoc.WithRepositories(apidoc.NewDocumentRepoPG(pool)))
		logger.Info().Msg("publishing documents to database")
	}

	return apidoc.NewService(gen, searchparameter.NewService(catalog), opts...), cleanup, nil
}

func printBatch(w io.Writer, outputDir string, batch *apidoc.Batch) {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", fail("✗"), r.Name, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s %s -> %s (%d definitions)\n", ok("✓"), r.Name,
			filepath.Join(outputDir, r.Document.FileName), r.Document.Definitions)
		if r.Report != nil && !r.Report.Valid() {
			fmt.Fprintf(w, "  %s %d validation errors\n", warn("!"), r.Report.Count(validate.SeverityError))
		}
	}
	if batch.Combined != nil {
		fmt.Fprintf(w, "%s combined -> %s\n", ok("✓"), filepath.Join(outputDir, batch.Combined.FileName))
	}
}

func resourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the FHIR resources defined by the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			idx, err := schema.Load(cfg.SchemaPath)
			if err != nil {
				return err
			}

			name := color.New(color.FgCyan, color.Bold).SprintFunc()
			names := idx.ResourceNames()
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name(n))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d resources in %s (FHIR %s)\n", len(names), filepath.Base(cfg.SchemaPath), idx.Version())
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate Swagger 2.0 documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := setup(cmd); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			red := color.New(color.FgRed).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			green := color.New(color.FgGreen).SprintFunc()

			failed := 0
			for _, path := range args {
				report, err := validateFile(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(w, "%s %s: %v\n", red("✗"), path, err)
					failed++
					continue
				}
				for _, f := range report.Findings {
					mark := yellow("!")
					if f.Severity == validate.SeverityError {
						mark = red("✗")
					}
					fmt.Fprintf(w, "  %s %s\n", mark, f)
				}
				if !report.Valid() {
					fmt.Fprintf(w, "%s %s\n", red("✗"), path)
					failed++
					continue
				}
				fmt.Fprintf(w, "%s %s (%d warnings)\n", green("✓"), path, report.Count(validate.SeverityWarning))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func validateFile(ctx context.Context, path string) (*validate.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format, err := apidoc.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, err
	}
	data, err = (&apidoc.APIDocument{FileName: filepath.Base(path), Format: format, Content: data}).JSON()
	if err != nil {
		return nil, err
	}
	return validate.Document(ctx, data)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, err
	}
	if _, err := db.NewMigrator(pool, db.Migrations()).Up(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pool, nil
}
