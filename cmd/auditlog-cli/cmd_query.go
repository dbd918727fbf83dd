package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/auditlog/client"
)

// listFlags are the paging and time-range flags shared by every read.
type listFlags struct {
	from   string
	to     string
	limit  int
	offset int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Earliest created_at, RFC3339")
	cmd.Flags().StringVar(&f.to, "to", "", "Latest created_at, RFC3339")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Page size (server default 50, max 200)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Entries to skip")
}

func (f *listFlags) options() (client.ListOptions, error) {
	opts := client.ListOptions{Limit: f.limit, Offset: f.offset}
	var err error
	if opts.From, err = parseTimeFlag("from", f.from); err != nil {
		return opts, err
	}
	if opts.To, err = parseTimeFlag("to", f.to); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseTimeFlag(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be RFC3339 (e.g. 2024-01-15T00:00:00Z): %w", name, err)
	}
	return &t, nil
}

func newUserCmd() *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "user <employee-id>",
		Short: "List audit logs for one employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := requireCompCode()
			if err != nil {
				return err
			}
			opts, err := lf.options()
			if err != nil {
				return err
			}
			page, err := apiClient.Logs.ByEmployee(cmd.Context(), comp, args[0], &opts)
			if err != nil {
				return err
			}
			printPage(page)
			return nil
		},
	}
	lf.register(cmd)
	return cmd
}

func newAppCmd() *cobra.Command {
	var (
		lf       listFlags
		function string
	)
	cmd := &cobra.Command{
		Use:   "app <source-app>",
		Short: "List audit logs for one source application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := requireCompCode()
			if err != nil {
				return err
			}
			opts, err := lf.options()
			if err != nil {
				return err
			}
			page, err := apiClient.Logs.ByApplication(cmd.Context(), comp, args[0],
				&client.AppListOptions{ListOptions: opts, SourceFunction: function})
			if err != nil {
				return err
			}
			printPage(page)
			return nil
		},
	}
	lf.register(cmd)
	cmd.Flags().StringVar(&function, "function", "", "Only entries from this source function")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		lf       listFlags
		so       client.SearchOptions
		metadata string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit logs by any combination of fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := requireCompCode()
			if err != nil {
				return err
			}
			if so.ListOptions, err = lf.options(); err != nil {
				return err
			}
			if metadata != "" {
				doc := strings.TrimSpace(metadata)
				if !strings.HasPrefix(doc, "{") || !json.Valid([]byte(doc)) {
					return fmt.Errorf("--metadata must be a JSON object")
				}
				so.Metadata = json.RawMessage(doc)
			}
			page, err := apiClient.Logs.Search(cmd.Context(), comp, &so)
			if err != nil {
				return err
			}
			printPage(page)
			return nil
		},
	}
	lf.register(cmd)
	cmd.Flags().StringVar(&so.SourceApp, "app", "", "Source application")
	cmd.Flags().StringVar(&so.SourceFunction, "function", "", "Source function")
	cmd.Flags().StringVar(&so.ReferenceID, "reference", "", "Reference ID")
	cmd.Flags().StringVar(&so.CreatedBy, "created-by", "", "Creator")
	cmd.Flags().StringVar(&so.Action, "action", "", "Action")
	cmd.Flags().StringVar(&so.EmpID, "emp", "", "Employee ID")
	cmd.Flags().StringVar(&so.BatchID, "batch", "", "Batch ID")
	cmd.Flags().StringVar(&metadata, "metadata", "", `Metadata containment document, e.g. '{"region":"eu"}'`)
	return cmd
}
