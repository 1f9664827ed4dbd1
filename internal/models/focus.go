package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ItemType classifies what kind of item the user expressed
type ItemType string

const (
	ItemTypeEvent    ItemType = "event"
	ItemTypeTask     ItemType = "task"
	ItemTypeGoal     ItemType = "goal"
	ItemTypeReminder ItemType = "reminder"
	ItemTypeNote     ItemType = "note"
	ItemTypeFeeling  ItemType = "feeling"
	ItemTypeRequest  ItemType = "request"
	ItemTypeQuestion ItemType = "question"
)

// ItemTypes lists every valid ItemType value
var ItemTypes = []ItemType{
	ItemTypeEvent, ItemTypeTask, ItemTypeGoal, ItemTypeReminder,
	ItemTypeNote, ItemTypeFeeling, ItemTypeRequest, ItemTypeQuestion,
}

// ConversationalTypes are item types that describe the user's state of mind
// rather than actionable work. They are filtered before persistence by the
// extractor's default keep policy.
var ConversationalTypes = []ItemType{ItemTypeFeeling, ItemTypeRequest, ItemTypeQuestion}

// IsConversational reports whether the type carries no actionable work
func (t ItemType) IsConversational() bool {
	for _, c := range ConversationalTypes {
		if t == c {
			return true
		}
	}
	return false
}

// TaskSize estimates the effort of an item
type TaskSize string

const (
	TaskSizeSmall  TaskSize = "small"
	TaskSizeMedium TaskSize = "medium"
	TaskSizeLarge  TaskSize = "large"
	TaskSizeEpic   TaskSize = "epic"
)

// TaskSizes lists every valid TaskSize value
var TaskSizes = []TaskSize{TaskSizeSmall, TaskSizeMedium, TaskSizeLarge, TaskSizeEpic}

// Category is the closed vocabulary of life areas an item belongs to
type Category string

const (
	CategoryCareer              Category = "career"
	CategoryPersonalDevelopment Category = "personal_development"
	CategoryPhysicalHealth      Category = "physical_health"
	CategoryMentalHealth        Category = "mental_health"
	CategoryFinance             Category = "finance"
	CategoryEducation           Category = "education"
	CategoryRelationships       Category = "relationships"
	CategoryHome                Category = "home"
	CategoryShopping            Category = "shopping"
	CategoryInterests           Category = "interests"
	CategoryAdventure           Category = "adventure"
	CategoryTechnology          Category = "technology"
	CategorySpirituality        Category = "spirituality"
	CategoryProductivity        Category = "productivity"
	CategoryCreativity          Category = "creativity"
	CategoryCulture             Category = "culture"
	CategoryLegal               Category = "legal"
	CategoryEvents              Category = "events"
	CategoryProjects            Category = "projects"
)

// Categories lists every valid Category value
var Categories = []Category{
	CategoryCareer, CategoryPersonalDevelopment, CategoryPhysicalHealth,
	CategoryMentalHealth, CategoryFinance, CategoryEducation,
	CategoryRelationships, CategoryHome, CategoryShopping, CategoryInterests,
	CategoryAdventure, CategoryTechnology, CategorySpirituality,
	CategoryProductivity, CategoryCreativity, CategoryCulture, CategoryLegal,
	CategoryEvents, CategoryProjects,
}

// Sentiment is the emotional tone of an item
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Sentiments lists every valid Sentiment value
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// FocusState is the lifecycle state of a focus item
type FocusState string

const (
	FocusStateBacklog   FocusState = "backlog"
	FocusStateActive    FocusState = "active"
	FocusStateCompleted FocusState = "completed"
	FocusStateDeleted   FocusState = "deleted"
)

// FocusStates lists every valid FocusState value
var FocusStates = []FocusState{FocusStateBacklog, FocusStateActive, FocusStateCompleted, FocusStateDeleted}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Legal moves are backlog→active→completed and any state→deleted.
// Completed and deleted are terminal otherwise.
func (s FocusState) CanTransitionTo(next FocusState) bool {
	if next == FocusStateDeleted {
		return true
	}
	switch s {
	case FocusStateBacklog:
		return next == FocusStateActive
	case FocusStateActive:
		return next == FocusStateCompleted
	default:
		return false
	}
}

// FocusItem is the canonical persisted record of a task-like item.
// InIndex is true only while the semantic index holds an entry with this
// item's id and text; it must be reset to false whenever Text changes.
type FocusItem struct {
	ID        uuid.UUID  `json:"id"`
	ProfileID uuid.UUID  `json:"profile_id"`
	Text      string     `json:"text"`
	Type      ItemType   `json:"type"`
	TaskSize  TaskSize   `json:"task_size"`
	Category  Category   `json:"category"`
	Priority  int        `json:"priority"`
	Sentiment Sentiment  `json:"sentiment"`
	State     FocusState `json:"state"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	InIndex   bool       `json:"in_index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FocusDraft is a validated item that has not been persisted yet
type FocusDraft struct {
	Text      string     `json:"text"`
	Type      ItemType   `json:"type"`
	TaskSize  TaskSize   `json:"task_size"`
	Category  Category   `json:"category"`
	Priority  int        `json:"priority"`
	Sentiment Sentiment  `json:"sentiment"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// ItemPayload is the loosely typed shape a text-generation call returns for
// one candidate item. It must pass through validation.ValidateItem before
// anything else touches it. DueDate stays raw because the model may emit an
// ISO string, a relative component object, or null.
type ItemPayload struct {
	Type     string          `json:"type"`
	TaskSize string          `json:"task_size"`
	Text     string          `json:"text"`
	Category string          `json:"category"`
	Priority int             `json:"priority"`
	Sentiment string         `json:"sentiment"`
	DueDate  json.RawMessage `json:"due_date,omitempty"`
}
