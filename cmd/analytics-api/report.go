package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campaign-analytics/internal/analytics"
	"campaign-analytics/internal/config"
	"campaign-analytics/internal/export"
	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/logger"
)

var reportQueries = []string{
	"conversion-rate",
	"status-distribution",
	"category-type-performance",
	"filtered-aggregation",
}

func newReportCmd(configFile *string) *cobra.Command {
	var source, output string

	cmd := &cobra.Command{
		Use:   "report [query]",
		Short: "Load the dataset once and print query results as JSON",
		Long: `Load the campaign dataset once and print the result of one query, or of all
queries keyed by name, as JSON on stdout.

Queries: ` + strings.Join(reportQueries, ", ") + `

Example:
  analytics-api report conversion-rate --source data/campaigns.csv
  analytics-api report filtered-aggregation --output exports/averages.csv`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: reportQueries,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Dataset.Source = source
			}
			query := "all"
			if len(args) == 1 {
				query = args[0]
			}
			return report(cmd.Context(), cfg, query, output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Dataset URL or path (overrides dataset.source)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a .csv or .json file instead of stdout")
	return cmd
}

func report(ctx context.Context, cfg *config.Config, query, output string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// stdout carries the report, logs go to stderr.
	logCfg := cfg.Log.Logger()
	logCfg.OutputPaths = []string{"stderr"}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	loader, st, err := newLoader(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	table, _, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	engine := analytics.New(analytics.Static{T: table})
	result, err := runQuery(ctx, engine, query)
	if err != nil {
		return err
	}

	if output != "" {
		res, err := export.WriteFile(output, export.Report{Query: query, LoadID: table.LoadID(), Data: result})
		if err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		logger.Info("report exported",
			zap.String("path", res.Path),
			zap.String("format", res.Format),
			zap.Int("records", res.RecordCount),
		)
		return nil
	}

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}

func runQuery(ctx context.Context, engine *analytics.Engine, query string) (interface{}, error) {
	switch query {
	case "conversion-rate":
		return engine.ConversionRate(ctx), nil
	case "status-distribution":
		return engine.StatusDistribution(ctx), nil
	case "category-type-performance":
		perf, err := engine.CategoryTypePerformance(ctx)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeEmpty) {
			return nil, err
		}
		return perf, nil
	case "filtered-aggregation":
		return engine.FilteredAggregation(ctx), nil
	case "all":
		all := make(map[string]interface{}, len(reportQueries))
		for _, q := range reportQueries {
			v, err := runQuery(ctx, engine, q)
			if err != nil {
				return nil, err
			}
			all[q] = v
		}
		return all, nil
	default:
		return nil, fmt.Errorf("unknown query %q (want one of: %s, all)", query, strings.Join(reportQueries, ", "))
	}
}
