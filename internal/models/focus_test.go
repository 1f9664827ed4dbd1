package models

import (
	"testing"
)

func TestItemType_IsConversational(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		value          ItemType
		conversational bool
	}{
		{"task", ItemTypeTask, false},
		{"event", ItemTypeEvent, false},
		{"goal", ItemTypeGoal, false},
		{"reminder", ItemTypeReminder, false},
		{"note", ItemTypeNote, false},
		{"feeling", ItemTypeFeeling, true},
		{"request", ItemTypeRequest, true},
		{"question", ItemTypeQuestion, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.IsConversational(); got != tt.conversational {
				t.Errorf("IsConversational(%s) = %v, want %v", tt.value, got, tt.conversational)
			}
		})
	}
}

func TestFocusState_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    FocusState
		to      FocusState
		allowed bool
	}{
		{"backlog to active", FocusStateBacklog, FocusStateActive, true},
		{"active to completed", FocusStateActive, FocusStateCompleted, true},
		{"backlog to deleted", FocusStateBacklog, FocusStateDeleted, true},
		{"active to deleted", FocusStateActive, FocusStateDeleted, true},
		{"completed to deleted", FocusStateCompleted, FocusStateDeleted, true},
		{"deleted to deleted", FocusStateDeleted, FocusStateDeleted, true},
		{"backlog to completed", FocusStateBacklog, FocusStateCompleted, false},
		{"completed to active", FocusStateCompleted, FocusStateActive, false},
		{"completed to backlog", FocusStateCompleted, FocusStateBacklog, false},
		{"deleted to backlog", FocusStateDeleted, FocusStateBacklog, false},
		{"deleted to active", FocusStateDeleted, FocusStateActive, false},
		{"active to backlog", FocusStateActive, FocusStateBacklog, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestVocabularies_Complete(t *testing.T) {
	t.Parallel()

	if len(ItemTypes) != 8 {
		t.Errorf("expected 8 item types, got %d", len(ItemTypes))
	}
	if len(TaskSizes) != 4 {
		t.Errorf("expected 4 task sizes, got %d", len(TaskSizes))
	}
	if len(Categories) != 19 {
		t.Errorf("expected 19 categories, got %d", len(Categories))
	}
	if len(Sentiments) != 3 {
		t.Errorf("expected 3 sentiments, got %d", len(Sentiments))
	}
	if len(FocusStates) != 4 {
		t.Errorf("expected 4 focus states, got %d", len(FocusStates))
	}
}
