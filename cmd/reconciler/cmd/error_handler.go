package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"statement-reconciler/cmd/reconciler/config"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler writing to stderr
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.WithComponent(logger.ComponentCLI),
		verbose: viper.GetBool(config.KeyVerbose),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the process exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			// stack traces are only useful in verbose mode
			if key == "stack" && !h.verbose {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		if len(keys) > 0 {
			fmt.Fprintf(h.out, "\nContext:\n")
			for _, key := range keys {
				fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
			}
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// knownFailures maps common OS failures that arrive without a
// ReconcilerError onto a message, a suggestion and an exit code.
var knownFailures = []struct {
	matches    func(err error, text string) bool
	message    string
	suggestion string
	exit       int
}{
	{
		matches: func(err error, text string) bool {
			return os.IsNotExist(err) || strings.Contains(text, "no such file or directory")
		},
		message:    "File not found",
		suggestion: "Check if the file path is correct and the file exists",
		exit:       2,
	},
	{
		matches: func(err error, text string) bool {
			return os.IsPermission(err) || strings.Contains(text, "permission denied") || strings.Contains(text, "access denied")
		},
		message:    "Permission denied",
		suggestion: "Check file permissions and ensure you have read access",
		exit:       2,
	},
	{
		matches: func(err error, text string) bool {
			return err == syscall.ENOSPC || strings.Contains(text, "no space left") || strings.Contains(text, "disk full")
		},
		message:    "Insufficient disk space",
		suggestion: "Free up disk space in the output folder and try again",
		exit:       6,
	},
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	text := strings.ToLower(err.Error())
	for _, known := range knownFailures {
		if known.matches(err, text) {
			fmt.Fprintf(h.out, "Error: %s\nSuggestion: %s\n", known.message, known.suggestion)
			return known.exit
		}
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(h.out, "\nRun with --verbose for more details\n")
	}
	return 1
}

var categoryHelp = map[errors.ErrorCategory][]string{
	errors.CategoryFile: {
		"Check that the statements folder and spreadsheets exist",
		"Spreadsheets must end in .xlsx, .xls or .csv",
		"Ensure you have permission to read the inputs",
	},
	errors.CategoryParse: {
		"The spreadsheet needs Transaction Date and Amount columns (or a configured alias)",
		"Check that the first row of the sheet holds the column headers",
		"Scanned PDF statements without a text layer cannot be read",
	},
	errors.CategoryValidation: {
		"pdf-excel mode needs --pdf-dir and --excel",
		"excel-excel mode needs --excel and --second-excel",
		"Dates use DD/MM/YYYY or YYYY-MM-DD and the start must not follow the end",
	},
	errors.CategoryConfiguration: {
		"Check your command-line flags and the --config file syntax",
		"The threshold is a score between 0 and 100",
		"Use 'reconciler reconcile --help' to see all available options",
	},
	errors.CategoryReconciliation: {
		"Check that both sources contain transactions in the selected date range",
		"Try lowering --threshold or using --sign absolute",
	},
	errors.CategoryExport: {
		"Check that the output folder is writable and has free space",
		"Close any result workbook that is open in another program",
	},
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	title := "For more help:"
	tips, ok := categoryHelp[category]
	if ok {
		name := string(category)
		title = strings.ToUpper(name[:1]) + name[1:] + " error help:"
	} else {
		tips = []string{
			"Use 'reconciler --help' for general help",
			"Use 'reconciler reconcile --help' for command-specific help",
			"Run with --verbose to see the underlying error",
		}
	}
	return title + "\n• " + strings.Join(tips, "\n• ")
}
