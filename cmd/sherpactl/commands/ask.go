package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/dates"
	"github.com/sherpa-assist/sherpa-backend/internal/intent"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"github.com/spf13/cobra"
)

// askOutput is the YAML shape of one processed utterance
type askOutput struct {
	Input   string       `yaml:"input"`
	Created []itemOutput `yaml:"created,omitempty"`
	Found   []itemOutput `yaml:"found,omitempty"`
	Reply   string       `yaml:"reply,omitempty"`
	Failed  []string     `yaml:"failed,omitempty"`
}

// itemOutput is the YAML shape of one focus item
type itemOutput struct {
	ID       string `yaml:"id"`
	Text     string `yaml:"text"`
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
	State    string `yaml:"state"`
	DueDate  string `yaml:"due_date,omitempty"`
	Due      string `yaml:"due,omitempty"`
	InIndex  bool   `yaml:"in_index"`
}

func toItemOutput(item *models.FocusItem) itemOutput {
	out := itemOutput{
		ID:       item.ID.String(),
		Text:     item.Text,
		Type:     string(item.Type),
		Category: string(item.Category),
		Priority: item.Priority,
		State:    string(item.State),
		InIndex:  item.InIndex,
	}
	if item.DueDate != nil {
		out.DueDate = item.DueDate.Format("2006-01-02 15:04")
		out.Due = dates.Friendly(*item.DueDate, time.Now())
	}
	return out
}

func toAskOutput(result *intent.Result) askOutput {
	out := askOutput{
		Input: result.Input,
		Reply: result.Reply,
	}
	for _, item := range result.Created {
		out.Created = append(out.Created, toItemOutput(item))
	}
	for _, item := range result.Found {
		out.Found = append(out.Found, toItemOutput(item))
	}
	for _, f := range result.Failed {
		out.Failed = append(out.Failed, fmt.Sprintf("%s: %v", f.Op, f.Err))
	}
	return out
}

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	var profileFlag string
	var conversationFlag string

	cmd := &cobra.Command{
		Use:   "ask [utterance]",
		Short: "Run an utterance through the intent engine",
		Long:  "Classify a free-text utterance and run the operations it maps to: create tasks, search, or converse",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := uuid.Parse(profileFlag)
			if err != nil {
				return fmt.Errorf("invalid --profile: %w", err)
			}

			conversationID := uuid.Nil
			if conversationFlag != "" {
				conversationID, err = uuid.Parse(conversationFlag)
				if err != nil {
					return fmt.Errorf("invalid --conversation: %w", err)
				}
			}

			engine, err := newStack()
			if err != nil {
				return err
			}
			defer engine.Close()

			utterance := strings.Join(args, " ")
			result, err := engine.Router.Process(context.Background(), profileID, conversationID, utterance)
			if err != nil {
				return fmt.Errorf("failed to process utterance: %w", err)
			}

			return printYAML(toAskOutput(result))
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Profile ID owning the items (required)")
	cmd.Flags().StringVar(&conversationFlag, "conversation", "", "Conversation ID for transcript context")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
