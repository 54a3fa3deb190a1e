package cmd

import (
	"fmt"
	"go/token"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clarvo-ai/modelgen/internal/codegen"
	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/discovery"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Create, view and validate the modelgen configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	// The file may not exist yet, so skip loading it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath
		}
		c := config.Default()
		// Keep credentials out of the file.
		c.Source.URL = "${ENV:" + config.DatabaseURLEnv + "}"
		if err := c.Save(path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Config written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Source:\n")
		fmt.Printf("    URL:      %s\n", maskURL(cfg.Source.URL))
		fmt.Printf("    Driver:   %s\n", cfg.Source.Driver)
		fmt.Printf("    Schema:   %s\n", cfg.Source.Schema)
		fmt.Println()
		fmt.Printf("  Output:\n")
		fmt.Printf("    Path:     %s\n", cfg.Output.Path)
		fmt.Printf("    Package:  %s\n", cfg.Output.Package)
		if len(cfg.KeyOverrides) > 0 {
			fmt.Println()
			fmt.Printf("  Key overrides:\n")
			for _, o := range cfg.KeyOverrides {
				fmt.Printf("    %s.%s (primary key: %v, unique: %v)\n", o.Table, o.Column, o.PrimaryKey, o.Unique)
			}
		}
		fmt.Println()
		fmt.Printf("  Type mapping:\n")
		for _, line := range typeTableLines(cfg) {
			fmt.Printf("    %s\n", line)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		errs := validateConfig(cfg)
		if len(errs) > 0 {
			fmt.Println("Validation errors:")
			for _, e := range errs {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errs))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

func validateConfig(c *config.Config) []string {
	var errs []string

	if _, err := discovery.New(&c.Source, logger); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := url.Parse(c.Source.URL); err != nil {
		errs = append(errs, "source.url is not a valid URL")
	}
	if !token.IsIdentifier(c.Output.Package) {
		errs = append(errs, fmt.Sprintf("output.package %q is not a valid Go package name", c.Output.Package))
	}
	if filepath.Ext(c.Output.Path) != ".go" {
		errs = append(errs, "output.path must name a .go file")
	}
	for i, o := range c.KeyOverrides {
		if o.Table == "" || o.Column == "" {
			errs = append(errs, fmt.Sprintf("key_overrides[%d] needs table and column", i))
		}
		if !o.PrimaryKey && !o.Unique {
			errs = append(errs, fmt.Sprintf("key_overrides[%d] sets neither primary_key nor unique", i))
		}
	}
	names := make([]string, 0, len(c.TypeOverrides))
	for name := range c.TypeOverrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if o := c.TypeOverrides[name]; o.GoType == "" || o.StorageType == "" {
			errs = append(errs, fmt.Sprintf("type_overrides.%s needs go_type and storage_type", name))
		}
	}
	return errs
}

// typeTableLines renders the effective type table in type-name order,
// marking entries replaced by type_overrides.
func typeTableLines(c *config.Config) []string {
	tm := codegen.TypeMapFor(c)
	var lines []string
	for _, name := range tm.SortedTypes() {
		m := tm.Lookup(name)
		line := fmt.Sprintf("%s -> %s (%s)", name, m.GoType, m.StorageType)
		if tm.IsOverridden(name) {
			line += " [override]"
		}
		lines = append(lines, line)
	}
	return lines
}

var dsnPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// maskURL hides the password of a connection string, in URL or keyword
// form.
func maskURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return dsnPassword.ReplaceAllString(s, "${1}****")
	}
	if u.User == nil {
		return s
	}
	return strings.Replace(u.Redacted(), "xxxxx", "****", 1)
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
