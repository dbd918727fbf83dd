package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/auditlog/client"
)

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit [file]",
		Short: "Submit a batch of audit logs from a JSON file or stdin",
		Long: `Reads either {"logs": [...]} or a bare JSON array of log entries.
Entries without comp_code use the configured company code. Use "-" or omit
the file to read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			logs, err := readLogs(in, flagComp)
			if err != nil {
				return err
			}

			res, err := apiClient.Logs.SubmitBatch(cmd.Context(), logs)
			if err != nil {
				return err
			}
			output(res, res.BatchID)
			return nil
		},
	}
}

// readLogs decodes a batch document. Entries with no comp_code inherit
// compCode.
func readLogs(r io.Reader, compCode string) ([]client.LogInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var logs []client.LogInput
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &logs)
	} else {
		var req client.BatchRequest
		err = json.Unmarshal(trimmed, &req)
		logs = req.Logs
	}
	if err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, client.ErrNoLogs
	}

	for i := range logs {
		if logs[i].CompCode == "" {
			logs[i].CompCode = compCode
		}
	}
	return logs, nil
}
