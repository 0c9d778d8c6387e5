package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-reconciler/cmd/reconciler/config"
	"statement-reconciler/internal/parsers"
	"statement-reconciler/internal/reconciler"
	"statement-reconciler/internal/reporter"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile statement transactions against a spreadsheet",
	Long: `Reconcile extracts transactions from a folder of PDF bank statements (or
loads them from a first spreadsheet) and matches them against a second
spreadsheet by comparing amounts.

Two modes are supported:
- pdf-excel:   PDF statements folder against an Excel or CSV file
- excel-excel: a first spreadsheet against a second one

Results are written to a timestamped workbook holding the matched
transactions, the transactions found on one side only and the balance
difference, together with a workbook of the transactions read from the
first source.

Examples:
  # Statements against a ledger export
  reconciler reconcile --pdf-dir statements/ --excel ledger.xlsx --output-dir results/

  # Two spreadsheets, limited to January
  reconciler reconcile --mode excel-excel --excel bank.xlsx --second-excel xero.csv \
    --start-date 01/01/2024 --end-date 31/01/2024

  # Ignore the sign of amounts and let duplicate amounts share a match
  reconciler reconcile --pdf-dir statements/ --excel ledger.xls \
    --sign absolute --consumption amount-text

  # JSON summary with the unmatched transactions and live progress
  reconciler reconcile --pdf-dir statements/ --excel ledger.xlsx \
    --format json --show-unmatched --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()

	// Input flags
	flags.StringP(config.KeyMode, "m", string(reconciler.ModePDFExcel), "reconciliation mode: pdf-excel or excel-excel")
	flags.StringP(config.KeyPDFDir, "p", "", "folder of PDF bank statements (pdf-excel mode)")
	flags.StringP(config.KeyExcel, "e", "", "Excel or CSV transactions file, the first file in excel-excel mode")
	flags.String(config.KeySecondExcel, "", "second Excel or CSV file (excel-excel mode)")
	flags.StringP(config.KeyOutputDir, "o", "reconciliation_results", "folder the result workbooks are written to")

	// Date filtering flags
	flags.String(config.KeyStartDate, "", "filter start date (DD/MM/YYYY or YYYY-MM-DD)")
	flags.String(config.KeyEndDate, "", "filter end date (DD/MM/YYYY or YYYY-MM-DD)")

	// Matching configuration flags
	flags.IntP(config.KeyThreshold, "t", 90, "minimum similarity score (0-100) for a match")
	flags.String(config.KeyConsumption, "identity", "duplicate handling: identity or amount-text")
	flags.String(config.KeySign, "signed", "amount comparison: signed or absolute")
	flags.Int(config.KeyWorkers, 4, "statements parsed concurrently")

	// Output flags
	flags.StringP(config.KeyFormat, "f", "console", "summary format: console, json")
	flags.Bool(config.KeyShowUnmatched, false, "list unmatched transactions in the summary")
	flags.Bool(config.KeyProgress, false, "show progress messages")

	for _, key := range []string{
		config.KeyMode, config.KeyPDFDir, config.KeyExcel, config.KeySecondExcel, config.KeyOutputDir,
		config.KeyStartDate, config.KeyEndDate,
		config.KeyThreshold, config.KeyConsumption, config.KeySign, config.KeyWorkers,
		config.KeyFormat, config.KeyShowUnmatched, config.KeyProgress,
	} {
		viper.BindPFlag(key, flags.Lookup(key))
	}
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	mode, err := reconciler.ParseMode(viper.GetString(config.KeyMode))
	if err != nil {
		return errors.ValidationError(errors.CodeOutOfRange, config.KeyMode, viper.GetString(config.KeyMode), err).
			WithSuggestion("Use --mode pdf-excel or --mode excel-excel")
	}

	switch mode {
	case reconciler.ModePDFExcel:
		if err := validateDirExists(viper.GetString(config.KeyPDFDir), "PDF statements folder", config.KeyPDFDir); err != nil {
			return err
		}
		if err := validateFileExists(viper.GetString(config.KeyExcel), "Excel transactions file", config.KeyExcel); err != nil {
			return err
		}
	case reconciler.ModeExcelExcel:
		if err := validateFileExists(viper.GetString(config.KeyExcel), "first Excel file", config.KeyExcel); err != nil {
			return err
		}
		if err := validateFileExists(viper.GetString(config.KeySecondExcel), "second Excel file", config.KeySecondExcel); err != nil {
			return err
		}
	}

	if strings.TrimSpace(viper.GetString(config.KeyOutputDir)) == "" {
		return errors.ValidationError(errors.CodeMissingField, config.KeyOutputDir, "", fmt.Errorf("output-dir is required")).
			WithSuggestion("Select an output folder with --output-dir")
	}

	if _, err := config.CreateReportConfig(viper.GetString(config.KeyFormat), false); err != nil {
		return err
	}
	if _, err := config.CreateMatchingConfig(viper.GetInt(config.KeyThreshold), viper.GetString(config.KeyConsumption), viper.GetString(config.KeySign)); err != nil {
		return err
	}
	return nil
}

func validateFileExists(filePath, description, flag string) error {
	if strings.TrimSpace(filePath) == "" {
		return errors.ValidationError(errors.CodeMissingField, flag, "", fmt.Errorf("%s is required", description)).
			WithSuggestion(fmt.Sprintf("Select the %s with --%s", description, flag))
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return classifyPathError(filePath, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeUnsupportedInput, filePath,
			fmt.Errorf("%s is a directory, expected a file", description))
	}

	if _, err := parsers.DetectSheetFormat(filePath); err != nil {
		return err
	}
	return nil
}

func validateDirExists(dir, description, flag string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.ValidationError(errors.CodeMissingField, flag, "", fmt.Errorf("%s is required", description)).
			WithSuggestion(fmt.Sprintf("Select the %s with --%s", description, flag))
	}

	info, err := os.Stat(dir)
	if err != nil {
		return classifyPathError(dir, err)
	}
	if !info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, dir,
			fmt.Errorf("%s is a file, expected a folder", description))
	}
	return nil
}

func classifyPathError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.FileError(errors.CodeFileNotFound, path, err)
	case os.IsPermission(err):
		return errors.FileError(errors.CodeFilePermission, path, err)
	default:
		return errors.FileError(errors.CodeDirectoryError, path, err)
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.WithComponent(logger.ComponentCLI)

	serviceConfig, err := config.CreateReconcilerConfig(viper.GetViper())
	if err != nil {
		return err
	}
	request, dateWarnings, err := config.CreateRequest(viper.GetViper())
	if err != nil {
		return err
	}
	reportConfig, err := config.CreateReportConfig(viper.GetString(config.KeyFormat), viper.GetBool(config.KeyShowUnmatched))
	if err != nil {
		return err
	}

	for _, w := range dateWarnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}

	service, err := reconciler.NewService(serviceConfig, parsers.NewPDFExtractor())
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"mode":       request.Mode,
		"output_dir": request.OutputDir,
		"range":      request.DateRange.String(),
	}).Info("Starting reconciliation")

	run := service.Start(ctx, request)
	printProgress(run.Updates(), cmd.ErrOrStderr(), viper.GetBool(config.KeyProgress))

	result, err := run.Wait()
	if err != nil {
		return err
	}
	result.Summary.Warnings = append(dateWarnings, result.Summary.Warnings...)

	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}
	return generator.GenerateReportSafely(result.Summary, result.Outcome, cmd.OutOrStdout())
}

// printProgress drains updates, echoing them to w when show is set
func printProgress(updates <-chan reconciler.ProgressUpdate, w io.Writer, show bool) {
	for update := range updates {
		if !show {
			continue
		}
		if update.Percent < 0 {
			fmt.Fprintf(w, "       %s\n", update.Message)
			continue
		}
		fmt.Fprintf(w, "[%3d%%] %s\n", update.Percent, update.Message)
	}
}
