package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Manage canonical administrative boundary sets",
}

var (
	boundariesFile    string
	boundariesURL     string
	boundariesLevel   string
	boundariesCountry string
)

var boundariesLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a COD-AB shapefile into the store",
	Long:  "Reads an ADM-level shapefile (local path or zipped archive URL) and replaces the stored boundary set for that country and level.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level := model.AdminLevel(boundariesLevel)
		if level.Depth() < 0 {
			return eris.Errorf("invalid admin level %q (want ADM0..ADM4)", boundariesLevel)
		}
		if boundariesCountry == "" {
			return eris.New("--country is required")
		}

		path := boundariesFile
		if path == "" && boundariesURL == "" {
			return eris.New("one of --file or --url is required")
		}
		if path == "" {
			dl := boundary.NewDownloader(&http.Client{Timeout: 5 * time.Minute}, cfg.Boundaries.RequestsPerSec)
			p, err := dl.FetchArchive(ctx, boundariesURL, cfg.Boundaries.TempDir)
			if err != nil {
				return err
			}
			path = p
		}

		records, err := boundary.LoadShapefile(path, level, boundariesCountry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.InsertBoundaries(ctx, records)
		if err != nil {
			return err
		}

		zap.L().Info("boundaries loaded",
			zap.String("country", boundariesCountry),
			zap.String("level", string(level)),
			zap.Int64("count", n),
		)
		return nil
	},
}

func init() {
	boundariesLoadCmd.Flags().StringVar(&boundariesFile, "file", "", "local shapefile path (.shp)")
	boundariesLoadCmd.Flags().StringVar(&boundariesURL, "url", "", "zipped shapefile archive URL")
	boundariesLoadCmd.Flags().StringVar(&boundariesLevel, "level", "", "admin level (ADM0..ADM4)")
	boundariesLoadCmd.Flags().StringVar(&boundariesCountry, "country", "", "ISO3 country code")
	boundariesLoadCmd.MarkFlagRequired("level") //nolint:errcheck

	boundariesCmd.AddCommand(boundariesLoadCmd)
	rootCmd.AddCommand(boundariesCmd)
}
