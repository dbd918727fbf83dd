package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// executeArgs runs the given root command with args and returns any error.
// It suppresses cobra's usage/error output so test output stays clean.
func executeArgs(t *testing.T, root *cobra.Command, args ...string) error {
	t.Helper()
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	root.SetArgs(args)
	_, err := root.ExecuteC()
	return err
}

// newArgsRoot builds the full command tree with every RunE replaced by a
// no-op so only argument validation is exercised.
func newArgsRoot() *cobra.Command {
	root := newRootCmd()
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {}
	for _, sub := range root.Commands() {
		sub.RunE = func(cmd *cobra.Command, args []string) error { return nil }
	}
	return root
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "user requires employee id", args: []string{"user"}, wantErr: true},
		{name: "user accepts one id", args: []string{"user", "E01"}},
		{name: "user rejects two ids", args: []string{"user", "E01", "E02"}, wantErr: true},
		{name: "app requires source app", args: []string{"app"}, wantErr: true},
		{name: "app accepts function flag", args: []string{"app", "payroll", "--function", "approve"}},
		{name: "search takes no positional args", args: []string{"search", "oops"}, wantErr: true},
		{name: "search accepts filters", args: []string{"search", "--action", "login", "--limit", "5"}},
		{name: "submit accepts stdin", args: []string{"submit"}},
		{name: "submit accepts one file", args: []string{"submit", "logs.json"}},
		{name: "submit rejects two files", args: []string{"submit", "a.json", "b.json"}, wantErr: true},
		{name: "health takes no args", args: []string{"health", "x"}, wantErr: true},
		{name: "limit must be an integer", args: []string{"search", "--limit", "ten"}, wantErr: true},
		{name: "unknown command", args: []string{"delete"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags(t)
			err := executeArgs(t, newArgsRoot(), tc.args...)
			if (err != nil) != tc.wantErr {
				t.Errorf("args %v: err=%v, wantErr=%v", tc.args, err, tc.wantErr)
			}
		})
	}
}

func TestParseTimeFlag(t *testing.T) {
	if got, err := parseTimeFlag("from", ""); err != nil || got != nil {
		t.Errorf("empty flag: got %v, %v", got, err)
	}

	got, err := parseTimeFlag("from", "2024-01-15T10:00:00+02:00")
	if err != nil {
		t.Fatalf("valid timestamp: %v", err)
	}
	if got.UTC().Hour() != 8 {
		t.Errorf("offset not applied: %v", got.UTC())
	}

	if _, err := parseTimeFlag("to", "2024-01-15"); err == nil || !strings.Contains(err.Error(), "--to") {
		t.Errorf("date-only value should fail naming the flag, got %v", err)
	}
}

func TestReadLogs(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "wrapped batch",
			input:     `{"logs":[{"comp_code":"X","source_app":"a","action":"b"}]}`,
			wantCount: 1,
		},
		{
			name:      "bare array",
			input:     ` [{"source_app":"a","action":"b"},{"source_app":"a","action":"c"}]`,
			wantCount: 2,
		},
		{name: "empty array", input: `[]`, wantErr: true},
		{name: "empty wrapped batch", input: `{"logs":[]}`, wantErr: true},
		{name: "not json", input: `logs: []`, wantErr: true},
		{name: "empty input", input: ``, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs, err := readLogs(strings.NewReader(tc.input), "DEFAULT")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tc.wantErr)
			}
			if len(logs) != tc.wantCount {
				t.Errorf("got %d logs, want %d", len(logs), tc.wantCount)
			}
		})
	}
}

func TestReadLogsInheritsCompCode(t *testing.T) {
	input := `[{"source_app":"a","action":"b"},{"comp_code":"OTHER","source_app":"a","action":"c"}]`
	logs, err := readLogs(strings.NewReader(input), "COMP001")
	if err != nil {
		t.Fatal(err)
	}
	if logs[0].CompCode != "COMP001" {
		t.Errorf("missing comp_code should inherit the configured one, got %q", logs[0].CompCode)
	}
	if logs[1].CompCode != "OTHER" {
		t.Errorf("explicit comp_code must be kept, got %q", logs[1].CompCode)
	}
}
