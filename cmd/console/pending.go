package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itqan-app/itqan-console/internal/models"
	"github.com/itqan-app/itqan-console/internal/service"
)

func pendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Review and decide pending registrations",
	}
	cmd.AddCommand(pendingListCmd())
	cmd.AddCommand(pendingActionCmd("approve", "Approve a pending registration"))
	cmd.AddCommand(pendingActionCmd("reject", "Reject a pending registration"))
	cmd.AddCommand(pendingDeleteCmd())
	return cmd
}

func parseKind(raw string) (models.EntityKind, error) {
	kind := models.EntityKind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q, expected centers, teachers or students", raw)
	}
	return kind, nil
}

func pendingListCmd() *cobra.Command {
	var kindFlag, statusFlag, searchFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities of one kind and lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			kind, err := parseKind(kindFlag)
			if err != nil {
				return err
			}

			ctx := context.Background()
			collection := service.NewCollectionService(a.pendingRepo, a.cacheSvc, kind, models.Status(statusFlag), a.logger)
			collection.Prime(ctx)
			if err := collection.Fetch(ctx); err != nil {
				return err
			}

			printEntities(kind, collection.Filter(searchFlag))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "students", "entity kind: centers, teachers or students")
	cmd.Flags().StringVar(&statusFlag, "status", "pending", "lifecycle status: pending, active or rejected")
	cmd.Flags().StringVar(&searchFlag, "search", "", "filter by name, email or phone")
	return cmd
}

func printEntities(kind models.EntityKind, items []models.PendingEntity) {
	if len(items) == 0 {
		fmt.Println("no entities found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	switch kind {
	case models.KindCenter:
		fmt.Fprintln(w, "ID\tNAME\tOWNER\tCITY\tSTATUS")
		for _, item := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.OwnerName, item.City, item.Status)
		}
	case models.KindStudent:
		fmt.Fprintln(w, "ID\tNAME\tGRADE\tCIRCLE\tGUARDIAN\tSTATUS")
		for _, item := range items {
			guardian := "—"
			if item.Guardian != nil {
				guardian = item.Guardian.Email
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.GradeLevel, item.Circle, guardian, item.Status)
		}
	default:
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tSTATUS")
		for _, item := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Email, item.Phone, item.Status)
		}
	}
	w.Flush()
}

func pendingActionCmd(action, short string) *cobra.Command {
	var kindFlag string
	var idFlag int64

	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			kind, err := parseKind(kindFlag)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if action == "approve" {
				err = a.approvalSvc.Approve(ctx, kind, idFlag)
			} else {
				err = a.approvalSvc.Reject(ctx, kind, idFlag)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s #%d %sd\n", kind, idFlag, action)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "students", "entity kind")
	cmd.Flags().Int64Var(&idFlag, "id", 0, "entity id")
	cmd.MarkFlagRequired("id")
	return cmd
}

func pendingDeleteCmd() *cobra.Command {
	var kindFlag string
	var idFlag int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete a decided registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			kind, err := parseKind(kindFlag)
			if err != nil {
				return err
			}

			ctx := context.Background()
			current, err := lookupStatus(ctx, a, kind, idFlag)
			if err != nil {
				return err
			}
			if err := a.approvalSvc.Delete(ctx, kind, idFlag, current); err != nil {
				return err
			}
			fmt.Printf("%s #%d deleted\n", kind, idFlag)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "students", "entity kind")
	cmd.Flags().Int64Var(&idFlag, "id", 0, "entity id")
	cmd.MarkFlagRequired("id")
	return cmd
}

// lookupStatus finds the entity's current lifecycle status by scanning the
// status-filtered lists, since the platform exposes no single-entity read.
func lookupStatus(ctx context.Context, a *app, kind models.EntityKind, id int64) (models.Status, error) {
	for _, status := range []models.Status{models.StatusActive, models.StatusRejected, models.StatusPending} {
		items, outcome := a.pendingRepo.List(ctx, kind, status)
		if !outcome.Success {
			return "", outcome.Err()
		}
		for _, item := range items {
			if item.ID == id {
				return status, nil
			}
		}
	}
	return "", fmt.Errorf("%s #%d not found", kind, id)
}
