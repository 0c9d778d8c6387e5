package parsers

import (
	"fmt"
	"strings"

	"statement-reconciler/internal/models"
)

// ColumnAlias maps a canonical column onto the header names a source may use
// instead. Aliases are tried in order and the first present header wins.
type ColumnAlias struct {
	Canonical string   `json:"canonical" mapstructure:"canonical"`
	Aliases   []string `json:"aliases" mapstructure:"aliases"`
	Numeric   bool     `json:"numeric" mapstructure:"numeric"`
}

// LoaderConfig holds configuration for loading spreadsheet sources
type LoaderConfig struct {
	Columns       []ColumnAlias `json:"columns" mapstructure:"columns"`
	Placeholder   string        `json:"placeholder" mapstructure:"placeholder"`
	DateLayouts   []string      `json:"date_layouts" mapstructure:"date_layouts"`
	Delimiter     rune          `json:"delimiter" mapstructure:"delimiter"`
	SkipEmptyRows bool          `json:"skip_empty_rows" mapstructure:"skip_empty_rows"`
}

// DefaultColumnAliases returns the alias table used when none is configured
func DefaultColumnAliases() []ColumnAlias {
	return []ColumnAlias{
		{
			Canonical: models.ColumnDate,
			Aliases:   []string{"Date", "TransactionDate", "Transaction Date", "date"},
		},
		{
			Canonical: models.ColumnDescription,
			Aliases:   []string{"Description", "Details", "Transaction Details", "Narration", "Reference", "Payee"},
		},
		{
			Canonical: models.ColumnAmount,
			Aliases:   []string{"Amount", "Value", "Debit/Credit", "Sum", "Total"},
			Numeric:   true,
		},
	}
}

// DefaultLoaderConfig returns a configuration with standard defaults
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Columns:       DefaultColumnAliases(),
		Placeholder:   "Unknown",
		DateLayouts:   append([]string(nil), models.DefaultDateLayouts...),
		Delimiter:     ',',
		SkipEmptyRows: true,
	}
}

// Validate checks if the loader configuration is valid
func (c *LoaderConfig) Validate() error {
	required := map[string]bool{
		models.ColumnDate:        false,
		models.ColumnDescription: false,
		models.ColumnAmount:      false,
	}

	for _, column := range c.Columns {
		if _, ok := required[column.Canonical]; !ok {
			return fmt.Errorf("unknown canonical column %q", column.Canonical)
		}
		if required[column.Canonical] {
			return fmt.Errorf("canonical column %q configured twice", column.Canonical)
		}
		required[column.Canonical] = true
	}

	for name, seen := range required {
		if !seen {
			return fmt.Errorf("no alias entry for canonical column %q", name)
		}
	}

	if strings.TrimSpace(c.Placeholder) == "" {
		return fmt.Errorf("placeholder cannot be empty")
	}
	if len(c.DateLayouts) == 0 {
		return fmt.Errorf("at least one date layout is required")
	}
	if c.Delimiter == 0 || c.Delimiter == '\n' || c.Delimiter == '\r' || c.Delimiter == '"' {
		return fmt.Errorf("invalid CSV delimiter %q", c.Delimiter)
	}

	return nil
}

// AliasesFor returns the ordered alias list of a canonical column
func (c *LoaderConfig) AliasesFor(canonical string) []string {
	for _, column := range c.Columns {
		if column.Canonical == canonical {
			return column.Aliases
		}
	}
	return nil
}

// DocumentConfig holds configuration for the statement document parser
type DocumentConfig struct {
	Extensions []string   `json:"extensions" mapstructure:"extensions"`
	Workers    int        `json:"workers" mapstructure:"workers"`
	Rules      []LineRule `json:"-" mapstructure:"-"`
}

// DefaultDocumentConfig returns a configuration with standard defaults
func DefaultDocumentConfig() *DocumentConfig {
	return &DocumentConfig{
		Extensions: []string{".pdf"},
		Workers:    4,
		Rules:      DefaultLineRules(),
	}
}

// Validate checks if the document configuration is valid
func (c *DocumentConfig) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one document extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid document extension %q", ext)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("at least one line rule is required")
	}
	return nil
}

// matchesExtension reports whether name carries one of the configured
// extensions, ignoring case.
func (c *DocumentConfig) matchesExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
