package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"github.com/sherpa-assist/sherpa-backend/internal/search"
	"github.com/sherpa-assist/sherpa-backend/internal/validation"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	var profileFlag string
	var keywordFlag string
	var dueOnFlag string
	var dueAfterFlag string
	var dueBeforeFlag string
	var stateFlag string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search focus items",
		Long:  "Hybrid search: --keyword routes through the semantic index; date and state flags filter relationally",
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := uuid.Parse(profileFlag)
			if err != nil {
				return fmt.Errorf("invalid --profile: %w", err)
			}

			params := search.Params{
				ProfileID: profileID,
				Keyword:   keywordFlag,
			}

			if params.DueOn, err = parseDateFlag(dueOnFlag); err != nil {
				return fmt.Errorf("invalid --due-on: %w", err)
			}
			if params.DueAfter, err = parseDateFlag(dueAfterFlag); err != nil {
				return fmt.Errorf("invalid --due-after: %w", err)
			}
			if params.DueBefore, err = parseDateFlag(dueBeforeFlag); err != nil {
				return fmt.Errorf("invalid --due-before: %w", err)
			}

			if stateFlag != "" {
				if err := validation.ValidateFocusState(stateFlag); err != nil {
					return fmt.Errorf("invalid --state: %w", err)
				}
				params.States = []models.FocusState{models.FocusState(stateFlag)}
			}

			engine, err := newStack()
			if err != nil {
				return err
			}
			defer engine.Close()

			items, err := engine.Searcher.Search(context.Background(), params)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if len(items) == 0 {
				fmt.Println("No matching items")
				return nil
			}

			out := make([]itemOutput, len(items))
			for i, item := range items {
				out[i] = toItemOutput(item)
			}
			return printYAML(out)
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Profile ID to search (required)")
	cmd.Flags().StringVar(&keywordFlag, "keyword", "", "Keyword for semantic search")
	cmd.Flags().StringVar(&dueOnFlag, "due-on", "", "Exact due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dueAfterFlag, "due-after", "", "Earliest due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dueBeforeFlag, "due-before", "", "Latest due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&stateFlag, "state", "", "Lifecycle state filter (backlog, active, completed)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
