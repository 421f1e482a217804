package action

import (
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantDisplay string
		wantAction  *Action
	}{
		{
			name:        "plain text",
			text:        "The gallery is under Tools.",
			wantDisplay: "The gallery is under Tools.",
			wantAction:  nil,
		},
		{
			name:        "trailing action line",
			text:        "Opening the gallery for you.\n{\"action\": \"open_view\", \"target\": \"gallery\"}",
			wantDisplay: "Opening the gallery for you.",
			wantAction:  &Action{Action: "open_view", Target: "gallery"},
		},
		{
			name:        "trailing action with blank lines after",
			text:        "Done.\n{\"action\": \"open_view\", \"target\": \"settings\"}\n\n",
			wantDisplay: "Done.",
			wantAction:  &Action{Action: "open_view", Target: "settings"},
		},
		{
			name:        "fenced action block",
			text:        "Here you go:\n```json\n{\"action\": \"open_view\", \"target\": \"converter\"}\n```\nAnything else?",
			wantDisplay: "Here you go:\n\nAnything else?",
			wantAction:  &Action{Action: "open_view", Target: "converter"},
		},
		{
			name:        "invalid json last line",
			text:        "Some text\n{not valid json}",
			wantDisplay: "Some text\n{not valid json}",
			wantAction:  nil,
		},
		{
			name:        "json mid-text only",
			text:        "{\"action\": \"open_view\"}\nBut the reply continues here.",
			wantDisplay: "{\"action\": \"open_view\"}\nBut the reply continues here.",
			wantAction:  nil,
		},
		{
			name:        "empty input",
			text:        "",
			wantDisplay: "",
			wantAction:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, act := Extract(tt.text)

			if display != tt.wantDisplay {
				t.Errorf("display = %q, want %q", display, tt.wantDisplay)
			}

			if (act == nil) != (tt.wantAction == nil) {
				t.Fatalf("action = %+v, want %+v", act, tt.wantAction)
			}
			if act != nil {
				if act.Action != tt.wantAction.Action {
					t.Errorf("action = %q, want %q", act.Action, tt.wantAction.Action)
				}
				if act.Target != tt.wantAction.Target {
					t.Errorf("target = %q, want %q", act.Target, tt.wantAction.Target)
				}
			}
		})
	}
}

func TestExtractActionArgs(t *testing.T) {
	text := "Switching units.\n{\"action\": \"set_unit\", \"target\": \"converter\", \"args\": {\"unit\": \"kelvin\"}}"

	_, act := Extract(text)
	if act == nil {
		t.Fatal("action = nil, want parsed action")
	}
	if got := act.Args["unit"]; got != "kelvin" {
		t.Errorf("args[unit] = %v, want %q", got, "kelvin")
	}
}

func TestExtractPrefersFencedBlock(t *testing.T) {
	text := "Reply.\n```json\n{\"action\": \"fenced\"}\n```\n{\"action\": \"trailing\"}"

	_, act := Extract(text)
	if act == nil {
		t.Fatal("action = nil, want parsed action")
	}
	if act.Action != "fenced" {
		t.Errorf("action = %q, want the fenced block to win", act.Action)
	}
}
