package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewDeleteCmd creates the delete command
func NewDeleteCmd() *cobra.Command {
	var idFlag string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a focus item from both stores",
		Long:  "Remove the relational row and, best effort, the semantic index entry. A failed index delete leaves an orphan that search can never surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(idFlag)
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}

			engine, err := newStack()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Syncer.Delete(context.Background(), id); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}

			fmt.Printf("Deleted %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&idFlag, "id", "", "Focus item ID to delete (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
