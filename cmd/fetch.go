package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/obligation-finder/internal/model"
	"github.com/sells-group/obligation-finder/internal/obligations"
	"github.com/sells-group/obligation-finder/internal/render"
)

var (
	fetchYearsFlag []string
	fetchOutput    string
	fetchOutFile   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and total obligations for one or more fiscal years",
	Example: `  obligation-finder fetch
  obligation-finder fetch --year 2021 --year 2022 --output json
  obligation-finder fetch --year 2020 --output xlsx --out fy2020.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		format, err := render.ParseFormat(fetchOutput)
		if err != nil {
			return err
		}
		if format.Binary() && fetchOutFile == "" {
			return eris.Errorf("--out is required for %s output", format)
		}

		years, err := resolveYears(fetchYearsFlag, yearRange(cfg), model.FiscalYear(cfg.Years.Default))
		if err != nil {
			return err
		}

		snaps, err := fetchSnapshots(cmd.Context(), newSource(cfg), yearRange(cfg), years)
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if fetchOutFile != "" {
			f, err := os.Create(fetchOutFile)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := render.Write(out, format, snaps...); err != nil {
			return eris.Wrap(err, "render")
		}
		if fetchOutFile != "" {
			zap.L().Info("wrote output", zap.String("path", fetchOutFile), zap.String("format", string(format)))
		}

		return failedYears(snaps)
	},
}

// resolveYears validates the requested years against r, dropping duplicates
// while keeping order. No request means the default year.
func resolveYears(requested []string, r model.YearRange, def model.FiscalYear) ([]model.FiscalYear, error) {
	if len(requested) == 0 {
		return []model.FiscalYear{def}, nil
	}
	seen := make(map[model.FiscalYear]bool, len(requested))
	years := make([]model.FiscalYear, 0, len(requested))
	for _, s := range requested {
		fy, err := model.ParseFiscalYear(s, r)
		if err != nil {
			return nil, err
		}
		if seen[fy] {
			continue
		}
		seen[fy] = true
		years = append(years, fy)
	}
	return years, nil
}

// fetchSnapshots loads each year through its own controller, concurrently,
// and returns the settled snapshots in the order of years.
func fetchSnapshots(ctx context.Context, src obligations.Source, r model.YearRange, years []model.FiscalYear) ([]model.Snapshot, error) {
	snaps := make([]model.Snapshot, len(years))

	g, gctx := errgroup.WithContext(ctx)
	for i, y := range years {
		g.Go(func() error {
			ctrl, err := obligations.NewController(src, r, y)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.SelectYear(y); err != nil {
				return err
			}
			snap, err := ctrl.Await(gctx)
			if err != nil {
				return eris.Wrapf(err, "fetch fy%d", int(y))
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// failedYears returns an error naming every year whose load failed.
func failedYears(snaps []model.Snapshot) error {
	var failed []int
	for _, s := range snaps {
		if s.Status == model.FetchStatusFailed {
			failed = append(failed, int(s.SelectedYear))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return eris.Errorf("fetch failed for fiscal years %v", failed)
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchYearsFlag, "year", nil, "fiscal year to fetch, repeatable (default from config)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", string(render.FormatTable), "output format: table, json, yaml or xlsx")
	fetchCmd.Flags().StringVar(&fetchOutFile, "out", "", "write output to this file instead of stdout")
	rootCmd.AddCommand(fetchCmd)
}
