package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/itqan-app/itqan-console/internal/models"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and export the platform audit trail",
	}
	cmd.AddCommand(auditShowCmd())
	cmd.AddCommand(auditExportCmd())
	cmd.AddCommand(auditClearCmd())
	return cmd
}

func auditShowCmd() *cobra.Command {
	var periodFlag, searchFlag string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the audit trail for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if _, err := a.auditSvc.Load(ctx, periodFlag); err != nil {
				return err
			}

			rows := a.auditSvc.Search(searchFlag)
			printAuditRows(rows)
			fmt.Printf("\n%d of %d entries\n", len(rows), a.auditSvc.Total())
			return nil
		},
	}

	cmd.Flags().StringVar(&periodFlag, "period", "all", "period: today, week, month or all")
	cmd.Flags().StringVar(&searchFlag, "search", "", "filter by action, actor, resource or change text")
	return cmd
}

func printAuditRows(rows []models.AuditLogRow) {
	if len(rows) == 0 {
		fmt.Println("no audit entries")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tACTOR\tRESOURCE\tCHANGES\tSTATUS")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.CreatedAt.Format("2006-01-02 15:04"),
			row.Label, row.Actor, row.Resource, row.Diff, row.Status)
	}
	w.Flush()
}

func auditExportCmd() *cobra.Command {
	var periodFlag, formatFlag string
	var remoteFlag bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the audit trail to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := os.MkdirAll(a.cfg.Export.Dir, 0o755); err != nil {
				return err
			}

			if remoteFlag {
				result, err := a.auditSvc.ExportRemote(ctx, periodFlag)
				if err != nil {
					return err
				}
				path := filepath.Join(a.cfg.Export.Dir, result.Filename)
				if err := os.WriteFile(path, []byte(result.Content), 0o644); err != nil {
					return err
				}
				fmt.Printf("exported %s\n", path)
				return nil
			}

			if _, err := a.auditSvc.Load(ctx, periodFlag); err != nil {
				return err
			}
			content, err := a.auditSvc.RenderLocal(a.auditSvc.Rows(), formatFlag)
			if err != nil {
				return err
			}

			ext := formatFlag
			if ext == "" {
				ext = "csv"
			}
			name := fmt.Sprintf("audit-logs-%s-%s.%s", periodFlag, time.Now().Format("20060102-150405"), ext)
			path := filepath.Join(a.cfg.Export.Dir, name)
			if err := os.WriteFile(path, content, 0o644); err != nil {
				return err
			}
			fmt.Printf("exported %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&periodFlag, "period", "all", "period: today, week, month or all")
	cmd.Flags().StringVar(&formatFlag, "format", "csv", "local export format: csv or pdf")
	cmd.Flags().BoolVar(&remoteFlag, "remote", false, "let the platform render the export instead")
	return cmd
}

func auditClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the platform audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.auditSvc.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("audit log cleared")
			return nil
		},
	}
	return cmd
}
