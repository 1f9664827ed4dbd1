package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewReconcileCmd creates the reconcile command
func NewReconcileCmd() *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile one profile's semantic index",
		Long:  "Mirror every unindexed item of a profile into the semantic index. Safe to run repeatedly; a consistent profile is a no-op",
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := uuid.Parse(profileFlag)
			if err != nil {
				return fmt.Errorf("invalid --profile: %w", err)
			}

			engine, err := newStack()
			if err != nil {
				return err
			}
			defer engine.Close()

			count, err := engine.Syncer.Reconcile(context.Background(), profileID)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}

			if count == 0 {
				fmt.Println("Profile already consistent")
			} else {
				fmt.Printf("Indexed %d item(s)\n", count)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Profile ID to reconcile (required)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
