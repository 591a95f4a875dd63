package cli

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
)

// NewReconcileCmd recomputes leaderboard totals from the answer ledger.
func NewReconcileCmd(configPath *string) *cobra.Command {
	var (
		userID string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild leaderboard totals from stored answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" && !all {
				return errors.New("pass --user or --all")
			}
			ctx := cmd.Context()
			b, err := buildBackends(ctx, *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			service := b.submissionService()
			if userID != "" {
				entry, err := service.Reconcile(ctx, userID)
				if err != nil {
					return err
				}
				log.Printf("reconciled %s: total=%d", entry.UserID, entry.TotalScore)
				return nil
			}
			entries, err := service.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			log.Printf("reconciled %d users", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "reconcile one user")
	cmd.Flags().BoolVar(&all, "all", false, "reconcile every user with answers")
	return cmd
}
