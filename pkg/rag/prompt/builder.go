package prompt

import (
	"fmt"
	"strings"

	"ash-assistant-be/internal/constant"
	"ash-assistant-be/pkg/kb"
	"ash-assistant-be/pkg/llm"
)

// Mode selects the response style for a query.
type Mode string

const (
	ModeNav     Mode = "nav"
	ModeExplain Mode = "explain"
	ModeTrouble Mode = "trouble"
	ModeDefault Mode = "default"
)

var (
	navKeywords     = []string{"where ", "open ", "start", "shortcut", "settings", "navigate", "show me"}
	explainKeywords = []string{"explain", "why", "how", "bug", "error", "help"}
)

// ClassifyMode picks the response mode from the query text. First match wins.
func ClassifyMode(query string) Mode {
	lower := strings.ToLower(query)
	for _, kw := range navKeywords {
		if strings.Contains(lower, kw) {
			return ModeNav
		}
	}
	for _, kw := range explainKeywords {
		if strings.Contains(lower, kw) {
			return ModeExplain
		}
	}
	return ModeDefault
}

// Builder assembles the system+user message pair sent to the model.
type Builder struct {
	query    string
	mode     Mode
	snippets []kb.RetrievedSnippet
}

func NewBuilder(query string, mode Mode, snippets []kb.RetrievedSnippet) *Builder {
	return &Builder{
		query:    query,
		mode:     mode,
		snippets: snippets,
	}
}

// Build returns exactly two messages: the system instruction and the user
// message carrying the question plus the retrieved context block.
func (b *Builder) Build() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: b.systemPrompt()},
		{Role: llm.RoleUser, Content: b.userPrompt()},
	}
}

func (b *Builder) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(constant.AssistantBasePrompt)
	switch b.mode {
	case ModeNav:
		sb.WriteString(constant.AssistantNavSuffix)
	case ModeExplain:
		sb.WriteString(constant.AssistantExplainSuffix)
	case ModeTrouble:
		sb.WriteString(constant.AssistantTroubleSuffix)
	}
	return sb.String()
}

func (b *Builder) userPrompt() string {
	var sb strings.Builder
	sb.WriteString(b.query)
	sb.WriteString("\n\n")
	sb.WriteString(constant.AssistantContextHeader)
	sb.WriteString("\n")
	sb.WriteString(b.contextBlock())
	sb.WriteString("\n\n")
	sb.WriteString(constant.AssistantContextInstructions)
	return sb.String()
}

func (b *Builder) contextBlock() string {
	if len(b.snippets) == 0 {
		return constant.AssistantNoContextPlaceholder
	}

	blocks := make([]string, 0, len(b.snippets))
	for i, snip := range b.snippets {
		blocks = append(blocks, fmt.Sprintf("[%d] %s • %s\n%s",
			i+1, snip.Document.ID, snip.Document.Title, snip.Snippet))
	}
	return strings.Join(blocks, "\n\n")
}
