package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/auditlog/client"
)

// Build-time variables set via ldflags.
var (
	version   = "1.0.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3040"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagComp  string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("auditlog version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("auditlog version %s-dev", version)
}

type configFile struct {
	// Flat format
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	CompCode string `yaml:"comp_code"`
	// Profile format
	Profiles      map[string]profileConfig `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

// profileConfig holds connection settings for a single profile.
type profileConfig struct {
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	CompCode string `yaml:"comp_code"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "auditlog",
		Short:   "Audit log CLI: submit and query tenant audit events",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Audit log server URL (env: AUDITLOG_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "Tenant API key (env: AUDITLOG_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagComp, "comp-code", "", "Tenant company code (env: AUDITLOG_COMP_CODE)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newAppCmd())
	rootCmd.AddCommand(newSearchCmd())

	return rootCmd
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".auditlog", "config.yaml"), nil
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagURL == defaultURL {
		if v := os.Getenv("AUDITLOG_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("AUDITLOG_API_KEY")
	}
	if flagComp == "" {
		flagComp = os.Getenv("AUDITLOG_COMP_CODE")
	}

	cfgPath, err := configPath()
	if err != nil {
		return
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	resolved := profileConfig{URL: cfg.URL, APIKey: cfg.APIKey, CompCode: cfg.CompCode}
	if cfg.Profiles != nil {
		profileName := cfg.ActiveProfile
		if profileName == "" {
			profileName = "default"
		}
		if p, ok := cfg.Profiles[profileName]; ok {
			if p.URL != "" {
				resolved.URL = p.URL
			}
			if p.APIKey != "" {
				resolved.APIKey = p.APIKey
			}
			if p.CompCode != "" {
				resolved.CompCode = p.CompCode
			}
		}
	}
	if flagURL == defaultURL && resolved.URL != "" {
		flagURL = resolved.URL
	}
	if flagKey == "" {
		flagKey = resolved.APIKey
	}
	if flagComp == "" {
		flagComp = resolved.CompCode
	}
}

// requireCompCode returns the tenant every read is scoped to.
func requireCompCode() (string, error) {
	if flagComp == "" {
		return "", fmt.Errorf("company code is required: pass --comp-code, set AUDITLOG_COMP_CODE, or run init")
	}
	return flagComp, nil
}
