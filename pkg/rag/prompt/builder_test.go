package prompt

import (
	"strings"
	"testing"

	"ash-assistant-be/internal/constant"
	"ash-assistant-be/pkg/kb"
	"ash-assistant-be/pkg/llm"
)

func TestClassifyMode(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Mode
	}{
		{"where question", "Where is the gallery?", ModeNav},
		{"open request", "please open the image viewer", ModeNav},
		{"settings lookup", "dark mode settings", ModeNav},
		{"shortcut lookup", "keyboard shortcut for export", ModeNav},
		{"explain request", "explain the unit converter", ModeExplain},
		{"why question", "why does the plot look wrong", ModeExplain},
		{"how question", "how do I export a CSV?", ModeExplain},
		{"error report", "I get an error when saving", ModeExplain},
		{"nav wins over explain", "where do I get help", ModeNav},
		{"no keyword", "periodic table", ModeDefault},
		{"case insensitive", "EXPLAIN the calculator", ModeExplain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMode(tt.query); got != tt.want {
				t.Errorf("ClassifyMode(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestBuildMessagePair(t *testing.T) {
	snippets := []kb.RetrievedSnippet{
		{
			Document: kb.Document{ID: "open_gallery", Title: "Open the gallery"},
			Snippet:  "Press G to open the gallery.",
			Score:    5.0,
		},
	}

	messages := NewBuilder("where is the gallery", ModeNav, snippets).Build()
	if len(messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(messages))
	}

	system := messages[0]
	if system.Role != llm.RoleSystem {
		t.Errorf("first role = %q, want %q", system.Role, llm.RoleSystem)
	}
	if !strings.HasPrefix(system.Content, constant.AssistantBasePrompt) {
		t.Error("system prompt does not start with the base prompt")
	}
	if !strings.Contains(system.Content, constant.AssistantNavSuffix) {
		t.Error("system prompt missing the nav style suffix")
	}

	user := messages[1]
	if user.Role != llm.RoleUser {
		t.Errorf("second role = %q, want %q", user.Role, llm.RoleUser)
	}
	if !strings.HasPrefix(user.Content, "where is the gallery") {
		t.Error("user message does not start with the query")
	}
	if !strings.Contains(user.Content, constant.AssistantContextHeader) {
		t.Error("user message missing the context header")
	}
	if !strings.Contains(user.Content, "[1] open_gallery • Open the gallery\nPress G to open the gallery.") {
		t.Errorf("context block malformed:\n%s", user.Content)
	}
	if !strings.HasSuffix(user.Content, constant.AssistantContextInstructions) {
		t.Error("user message does not end with the context instructions")
	}
}

func TestBuildModeSuffixes(t *testing.T) {
	tests := []struct {
		mode   Mode
		suffix string
	}{
		{ModeNav, constant.AssistantNavSuffix},
		{ModeExplain, constant.AssistantExplainSuffix},
		{ModeTrouble, constant.AssistantTroubleSuffix},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			messages := NewBuilder("q", tt.mode, nil).Build()
			if !strings.HasSuffix(messages[0].Content, tt.suffix) {
				t.Errorf("mode %q: system prompt missing its suffix", tt.mode)
			}
		})
	}

	t.Run("default", func(t *testing.T) {
		messages := NewBuilder("q", ModeDefault, nil).Build()
		if messages[0].Content != constant.AssistantBasePrompt {
			t.Error("default mode should use the bare base prompt")
		}
	})
}

func TestBuildWithoutSnippets(t *testing.T) {
	messages := NewBuilder("anything", ModeDefault, nil).Build()
	if !strings.Contains(messages[1].Content, constant.AssistantNoContextPlaceholder) {
		t.Error("user message missing the empty-context placeholder")
	}
}

func TestBuildNumbersSnippetsInOrder(t *testing.T) {
	snippets := []kb.RetrievedSnippet{
		{Document: kb.Document{ID: "a", Title: "A"}, Snippet: "first"},
		{Document: kb.Document{ID: "b", Title: "B"}, Snippet: "second"},
	}

	messages := NewBuilder("q", ModeDefault, snippets).Build()
	content := messages[1].Content
	first := strings.Index(content, "[1] a • A")
	second := strings.Index(content, "[2] b • B")
	if first < 0 || second < 0 || second < first {
		t.Errorf("snippet numbering out of order:\n%s", content)
	}
}
