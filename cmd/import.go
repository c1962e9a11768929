package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/ingest"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

var (
	importFile        string
	importName        string
	importType        string
	importLevel       string
	importCountry     string
	importPCodeCol    string
	importNameCol     string
	importValueCol    string
	importCategoryCol string
)

var importCmd = &cobra.Command{
	Use:   "import <dataset-id>",
	Short: "Import a CSV or XLSX dataset into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		datasetID := args[0]

		dsType := model.DatasetType(importType)
		level := model.AdminLevel(importLevel)
		if level.Depth() < 0 {
			return eris.Errorf("invalid admin level %q (want ADM0..ADM4)", importLevel)
		}

		mapping := ingest.ColumnMapping{
			PCode:    importPCodeCol,
			Name:     importNameCol,
			Value:    importValueCol,
			Category: importCategoryCol,
		}
		records, err := ingest.LoadFile(importFile, mapping, dsType)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		name := importName
		if name == "" {
			name = datasetID
		}
		if err := st.CreateDataset(ctx, model.Dataset{
			ID:          datasetID,
			Name:        name,
			Type:        dsType,
			AdminLevel:  level,
			CountryISO3: importCountry,
		}); err != nil {
			return err
		}

		n, err := st.InsertRawRecords(ctx, datasetID, records)
		if err != nil {
			return err
		}

		zap.L().Info("dataset imported",
			zap.String("dataset", datasetID),
			zap.Int64("rows", n),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "source file (.csv or .xlsx)")
	importCmd.Flags().StringVar(&importName, "name", "", "dataset display name (default: id)")
	importCmd.Flags().StringVar(&importType, "type", "numeric", "dataset type (numeric|categorical)")
	importCmd.Flags().StringVar(&importLevel, "level", "", "admin level of the rows (ADM0..ADM4)")
	importCmd.Flags().StringVar(&importCountry, "country", "", "ISO3 country code")
	importCmd.Flags().StringVar(&importPCodeCol, "pcode-col", "", "column carrying the pcode")
	importCmd.Flags().StringVar(&importNameCol, "name-col", "", "column carrying the location name")
	importCmd.Flags().StringVar(&importValueCol, "value-col", "", "column carrying the numeric value")
	importCmd.Flags().StringVar(&importCategoryCol, "category-col", "", "column carrying the category label")
	importCmd.MarkFlagRequired("file")    //nolint:errcheck
	importCmd.MarkFlagRequired("level")   //nolint:errcheck
	importCmd.MarkFlagRequired("country") //nolint:errcheck

	rootCmd.AddCommand(importCmd)
}
