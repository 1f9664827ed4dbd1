package ai

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseExtractionResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "clean JSON",
			content:   `{"items": [{"type": "task", "task_size": "small", "text": "buy milk", "category": "shopping", "priority": 3, "sentiment": "neutral", "due_date": null}]}`,
			wantCount: 1,
		},
		{
			name:      "empty items",
			content:   `{"items": []}`,
			wantCount: 0,
		},
		{
			name:      "JSON wrapped in prose",
			content:   "Here are the extracted items:\n{\"items\": [{\"type\": \"goal\", \"task_size\": \"large\", \"text\": \"run a marathon\", \"category\": \"physical_health\", \"priority\": 2, \"sentiment\": \"positive\", \"due_date\": null}]}\nLet me know if you need more.",
			wantCount: 1,
		},
		{
			name:      "markdown fenced JSON",
			content:   "```json\n{\"items\": []}\n```",
			wantCount: 0,
		},
		{
			name:    "not JSON at all",
			content: "I could not extract anything.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			items, err := parseExtractionResponse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.wantCount {
				t.Errorf("expected %d items, got %d", tt.wantCount, len(items))
			}
		})
	}
}

func TestParseExtractionResponseFields(t *testing.T) {
	t.Parallel()

	content := `{"items": [{"type": "task", "task_size": "medium", "text": "file taxes", "category": "finance", "priority": 1, "sentiment": "negative", "due_date": {"month": 0, "day": 3, "year": 0, "time": null}}]}`

	items, err := parseExtractionResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.Type != "task" {
		t.Errorf("expected type task, got %s", item.Type)
	}
	if item.Text != "file taxes" {
		t.Errorf("expected text 'file taxes', got %q", item.Text)
	}
	if item.Priority != 1 {
		t.Errorf("expected priority 1, got %d", item.Priority)
	}
	if len(item.DueDate) == 0 {
		t.Error("expected due_date to be carried through raw")
	}
}

func TestParseIntentResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "single chat call",
			content:   `{"tool_calls": [{"name": "chat", "parameters": {"user_message": "how are you"}}]}`,
			wantNames: []string{"chat"},
		},
		{
			name:      "ordered multi-call",
			content:   `{"tool_calls": [{"name": "create_tasks", "parameters": {"user_input": "buy milk"}}, {"name": "search_tasks", "parameters": {"keyword": "milk"}}]}`,
			wantNames: []string{"create_tasks", "search_tasks"},
		},
		{
			name:      "no calls",
			content:   `{"tool_calls": []}`,
			wantNames: nil,
		},
		{
			name:    "nameless call",
			content: `{"tool_calls": [{"parameters": {}}]}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			content: `{"tool_calls": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls, err := parseIntentResponse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(calls) != len(tt.wantNames) {
				t.Fatalf("expected %d calls, got %d", len(tt.wantNames), len(calls))
			}
			for i, name := range tt.wantNames {
				if calls[i].Name != name {
					t.Errorf("call %d: expected name %s, got %s", i, name, calls[i].Name)
				}
			}
		})
	}
}

func TestParseIntentResponseParameters(t *testing.T) {
	t.Parallel()

	content := `{"tool_calls": [{"name": "search_tasks", "parameters": {"keyword": "dentist", "due_before": "2024-08-01"}}]}`

	calls, err := parseIntentResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var params struct {
		Keyword   string `json:"keyword"`
		DueBefore string `json:"due_before"`
	}
	if err := json.Unmarshal(calls[0].Parameters, &params); err != nil {
		t.Fatalf("failed to decode parameters: %v", err)
	}
	if params.Keyword != "dentist" {
		t.Errorf("expected keyword dentist, got %q", params.Keyword)
	}
	if params.DueBefore != "2024-08-01" {
		t.Errorf("expected due_before 2024-08-01, got %q", params.DueBefore)
	}
}

func TestParseKeywordsResponse(t *testing.T) {
	t.Parallel()

	keywords, err := parseKeywordsResponse(`{"keywords": ["groceries", "milk", "shopping"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keywords) != 3 {
		t.Fatalf("expected 3 keywords, got %d", len(keywords))
	}
	if keywords[0] != "groceries" {
		t.Errorf("expected first keyword groceries, got %q", keywords[0])
	}

	if _, err := parseKeywordsResponse("no json here"); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestTrimToJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", `{"a": 1}`, `{"a": 1}`},
		{"leading prose", `Sure! {"a": 1}`, `{"a": 1}`},
		{"trailing prose", `{"a": 1} hope that helps`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"no object", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := trimToJSONObject(tt.in)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBuildExtractionSystemPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildExtractionSystemPrompt(nil)
	for _, want := range []string{`"task"`, `"goal"`, `"shopping"`, `"neutral"`, `{"items":`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %s", want)
		}
	}
	if strings.Contains(prompt, "already has the following open tasks") {
		t.Error("expected no exclusion section without exclusions")
	}

	withExclusions := buildExtractionSystemPrompt([]string{"buy milk", "walk the dog"})
	if !strings.Contains(withExclusions, "buy milk") || !strings.Contains(withExclusions, "walk the dog") {
		t.Error("expected exclusions to appear in prompt")
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	registry := NewProviderRegistry()
	RegisterOpenAI(registry)

	if _, err := registry.GetProvider("openai", map[string]string{}); err == nil {
		t.Error("expected error without api_key")
	}

	provider, err := registry.GetProvider("openai", map[string]string{"api_key": "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider == nil {
		t.Fatal("expected provider, got nil")
	}

	if _, err := registry.GetProvider("missing", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
