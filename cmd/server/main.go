package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dqa/internal/assessment/service"
	"dqa/internal/platform/config"
	"dqa/internal/platform/httpserver"
	"dqa/internal/platform/metrics"
	"dqa/internal/search"
	httptransport "dqa/internal/transport/http"
	"dqa/pkg/requestcontext"
)

var version = "dev"

func main() {
	cobra.OnInitialize(initConfig)
	root := rootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dqa",
		Short:         "IATI data quality assessment",
		Long:          "Scores an organisation's published IATI activities against attribute and document quality rules.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringSlice("env-file", config.DefaultEnvFiles, "env files loaded before reading the environment")
	_ = viper.BindPFlag("env-file", root.PersistentFlags().Lookup("env-file"))

	root.AddCommand(serveCmd())
	root.AddCommand(assessCmd())
	return root
}

// loadSettings reads the env files named by --env-file, then the environment.
func loadSettings() (config.Settings, error) {
	if _, err := config.LoadEnv(viper.GetStringSlice("env-file")); err != nil {
		return config.Settings{}, fmt.Errorf("load env files: %w", err)
	}
	return config.FromEnv()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if addr := viper.GetString("addr"); addr != "" {
				settings.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, settings)
			if err != nil {
				return err
			}
			defer a.Close()

			router := httptransport.NewRouter(httptransport.Config{
				APIKey:      settings.Server.SecretKey,
				Version:     version,
				Assessments: a.service,
				Lists:       a.lists,
				Metrics:     metrics.New(a.registry),
				Gatherer:    a.registry,
				Logger:      a.logger,
			})

			a.logger.InfoContext(ctx, "starting dqa",
				"addr", settings.Server.Addr,
				"search_url", settings.Search.URL,
				"data_dir", settings.DataDir,
				"financial_year", settings.FinancialYear(time.Now()).Label(),
				"version", version,
			)
			return httpserver.Run(ctx, httpserver.New(settings.Server.Addr, router), a.logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides DQA_ADDR)")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

type assessFlags struct {
	organisation          string
	countries             []string
	regions               []string
	sectors               []string
	fundingAndAccountable bool
	noExemptions          bool
}

func (f assessFlags) request() service.Request {
	return service.Request{
		Organisation: f.organisation,
		Filters: search.Filters{
			Countries: f.countries,
			Regions:   f.regions,
			Sectors:   f.sectors,
		},
		RequireFundingAndAccountable: f.fundingAndAccountable,
		IncludeExemptions:            !f.noExemptions,
	}
}

func assessCmd() *cobra.Command {
	var f assessFlags
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess one organisation and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(viper.GetString("format"))
			if err != nil {
				return err
			}
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := requestcontext.WithTime(cmd.Context(), time.Now().UTC())
			ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
			report, err := a.service.Assess(ctx, f.request())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), report, format)
		},
	}
	cmd.Flags().StringVar(&f.organisation, "org", "", "reporting organisation reference")
	cmd.Flags().StringSliceVar(&f.countries, "country", nil, "recipient country code (repeatable)")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "recipient region code (repeatable)")
	cmd.Flags().StringSliceVar(&f.sectors, "sector", nil, "DAC sector code or 3-digit group (repeatable)")
	cmd.Flags().BoolVar(&f.fundingAndAccountable, "funding-and-accountable", false, "only activities the organisation funds and is accountable for")
	cmd.Flags().BoolVar(&f.noExemptions, "no-exemptions", false, "ignore the document exemption list")
	cmd.Flags().String("format", string(formatTable), "output format: table, json or yaml")
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
