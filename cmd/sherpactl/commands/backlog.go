package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewBacklogCmd creates the backlog command
func NewBacklogCmd() *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Show the index reconciliation backlog",
		Long:  "List profiles with unindexed items, or with --profile, that profile's unindexed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newStack()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx := context.Background()

			if profileFlag == "" {
				profiles, err := engine.FocusRepo.ListProfilesWithUnindexed(ctx)
				if err != nil {
					return fmt.Errorf("failed to list backlog profiles: %w", err)
				}
				if len(profiles) == 0 {
					fmt.Println("Backlog is empty; both stores are consistent")
					return nil
				}
				ids := make([]string, len(profiles))
				for i, id := range profiles {
					ids[i] = id.String()
				}
				return printYAML(map[string]any{"profiles_with_backlog": ids})
			}

			profileID, err := uuid.Parse(profileFlag)
			if err != nil {
				return fmt.Errorf("invalid --profile: %w", err)
			}

			items, err := engine.FocusRepo.ListUnindexed(ctx, profileID)
			if err != nil {
				return fmt.Errorf("failed to list unindexed items: %w", err)
			}
			if len(items) == 0 {
				fmt.Println("Profile has no unindexed items")
				return nil
			}

			out := make([]itemOutput, len(items))
			for i, item := range items {
				out[i] = toItemOutput(item)
			}
			return printYAML(out)
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Profile ID to inspect")

	return cmd
}
