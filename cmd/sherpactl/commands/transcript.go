package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewTranscriptCmd creates the transcript command
func NewTranscriptCmd() *cobra.Command {
	var profileFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Extract tasks from a whole conversation transcript",
		Long:  "Read a transcript from --file or stdin and create the tasks it mentions, skipping tasks the profile already has open",
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := uuid.Parse(profileFlag)
			if err != nil {
				return fmt.Errorf("invalid --profile: %w", err)
			}

			var raw []byte
			if fileFlag != "" {
				raw, err = os.ReadFile(fileFlag)
				if err != nil {
					return fmt.Errorf("failed to read transcript: %w", err)
				}
			} else {
				raw, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}
			if len(raw) == 0 {
				return fmt.Errorf("transcript is empty")
			}

			engine, err := newStack()
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Router.ProcessTranscript(context.Background(), profileID, string(raw))
			if err != nil {
				return fmt.Errorf("failed to process transcript: %w", err)
			}

			if len(result.Created) == 0 {
				fmt.Println("No new tasks found in transcript")
				return nil
			}

			items := make([]itemOutput, len(result.Created))
			for i, item := range result.Created {
				items[i] = toItemOutput(item)
			}
			return printYAML(items)
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Profile ID owning the items (required)")
	cmd.Flags().StringVar(&fileFlag, "file", "", "Transcript file (defaults to stdin)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
