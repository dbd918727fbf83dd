package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/auditlog/client"
)

// profilesFile is the config file structure written by init.
type profilesFile struct {
	Profiles      map[string]profileConfig `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

func newInitCmd() *cobra.Command {
	var p profileConfig

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up audit log CLI configuration",
		Long:  "Interactive setup wizard that creates ~/.auditlog/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := p.URL != "" || p.APIKey != "" || p.CompCode != ""
			return runInit(p, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&p.URL, "url", "", "Server URL (non-interactive mode)")
	cmd.Flags().StringVar(&p.APIKey, "api-key", "", "Tenant API key (non-interactive mode)")
	cmd.Flags().StringVar(&p.CompCode, "comp-code", "", "Tenant company code (non-interactive mode)")
	return cmd
}

func runInit(p profileConfig, nonInteractive bool) error {
	if !nonInteractive {
		fmt.Println("\n  Audit Log Setup")
		fmt.Println("  ───────────────")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)
		p.URL = prompt(reader, "  Server URL ["+defaultURL+"]: ", p.URL)
		p.CompCode = prompt(reader, "  Company code: ", p.CompCode)
		p.APIKey = prompt(reader, "  API Key: ", p.APIKey)
	}

	if p.URL == "" {
		p.URL = defaultURL
	}
	if p.CompCode == "" {
		return fmt.Errorf("company code is required")
	}
	if p.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if !nonInteractive {
		fmt.Print("\n  Testing connection... ")
	}

	ver, err := testConnection(p.URL, p.APIKey)
	if err != nil {
		if !nonInteractive {
			fmt.Println("✗")
		}
		return fmt.Errorf("connection failed: %w", err)
	}

	if !nonInteractive {
		fmt.Printf("✓ Connected (v%s)\n", ver)
	}

	cfgPath, err := writeConfig(p)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if nonInteractive {
		fmt.Printf("Config saved to %s\n", cfgPath)
	} else {
		fmt.Printf("\n  ✓ Config saved to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("  Next steps:")
		fmt.Println("    auditlog submit logs.json   # Send a batch")
		fmt.Println("    auditlog search --limit 10  # Latest events")
		fmt.Println("    auditlog --help             # See all commands")
		fmt.Println()
	}

	return nil
}

func prompt(reader *bufio.Reader, label, fallback string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return fallback
}

func testConnection(url, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.New(url, client.WithAPIKey(apiKey)).Health(ctx)
	if err != nil {
		return "", err
	}
	if health.Version == "" {
		return "unknown", nil
	}
	return health.Version, nil
}

func writeConfig(p profileConfig) (string, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	cfg := profilesFile{
		Profiles:      map[string]profileConfig{"default": p},
		ActiveProfile: "default",
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
