package kb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestRetrieveRanking(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "help/gallery.json",
		`{"id": "open_gallery", "title": "Open the image gallery", "body": "To open the gallery use the toolbar button or press G."}`)
	writeDoc(t, root, "help/export.json",
		`{"id": "export_data", "title": "Export data", "body": "Export your dataset as CSV from the file menu."}`)
	writeDoc(t, root, "help/settings.json",
		`{"id": "settings", "title": "Settings", "body": "Adjust preferences in the settings dialog."}`)

	r := NewRetriever(NewStore(root))

	results := r.Retrieve("open gallery", DefaultK, nil)
	if len(results) != 3 {
		t.Fatalf("result count = %d, want 3", len(results))
	}
	if results[0].Document.ID != "open_gallery" {
		t.Errorf("top result = %q, want %q", results[0].Document.ID, "open_gallery")
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("top score %v not above runner-up %v", results[0].Score, results[1].Score)
	}
	if len(results[0].Snippet) > 300 {
		t.Errorf("snippet length = %d, want <= 300", len(results[0].Snippet))
	}
}

func TestRetrieveVerbatimPhraseBonus(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.json",
		`{"id": "phrase", "title": "Batch processing", "body": "Run a batch job overnight."}`)
	writeDoc(t, root, "b.json",
		`{"id": "scattered", "title": "Processing batch", "body": "Jobs run as a batch when processing finishes."}`)

	r := NewRetriever(NewStore(root))

	results := r.Retrieve("batch processing", 2, nil)
	if results[0].Document.ID != "phrase" {
		t.Errorf("top result = %q, want the verbatim phrase match", results[0].Document.ID)
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeDoc(t, root, name+".json",
			`{"id": "`+name+`", "title": "workspace notes", "body": "notes about the workspace"}`)
	}

	r := NewRetriever(NewStore(root))

	results := r.Retrieve("workspace", 2, nil)
	if len(results) != 2 {
		t.Errorf("result count = %d, want 2", len(results))
	}
}

func TestRetrieveTiesKeepDocumentOrder(t *testing.T) {
	root := t.TempDir()
	// Identical content: scores tie, lexical file order must decide
	writeDoc(t, root, "a.json", `{"title": "duplicate entry", "body": "same text"}`)
	writeDoc(t, root, "b.json", `{"title": "duplicate entry", "body": "same text"}`)

	r := NewRetriever(NewStore(root))

	for i := 0; i < 5; i++ {
		results := r.Retrieve("duplicate", 2, nil)
		if results[0].Document.ID != "a" || results[1].Document.ID != "b" {
			t.Fatalf("run %d: order = [%s %s], want [a b]", i, results[0].Document.ID, results[1].Document.ID)
		}
	}
}

func TestRetrieveNamespaceFilter(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "docs/a.json", `{"id": "a", "ns": "help", "title": "gallery", "body": "gallery help"}`)
	writeDoc(t, root, "docs/b.json", `{"id": "b", "ns": "tools", "title": "gallery", "body": "gallery tool"}`)

	r := NewRetriever(NewStore(root))

	results := r.Retrieve("gallery", DefaultK, map[string]bool{"tools": true})
	if len(results) != 1 {
		t.Fatalf("result count = %d, want 1", len(results))
	}
	if results[0].Document.ID != "b" {
		t.Errorf("result = %q, want %q", results[0].Document.ID, "b")
	}
}

func TestRetrieveNonPositiveK(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.json", `{"id": "a", "title": "anything", "body": "text"}`)

	r := NewRetriever(NewStore(root))

	for _, k := range []int{0, -1} {
		if results := r.Retrieve("anything", k, nil); len(results) != 0 {
			t.Errorf("k=%d: result count = %d, want 0", k, len(results))
		}
	}
}

func TestExtractSnippetWindow(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "padding words before the target appears here "
	}
	body := long + "UNIQUEMARKER rest of the sentence continues after the hit"

	snippet := extractSnippet(body, []string{"uniquemarker"})
	if len(snippet) > 300 {
		t.Errorf("snippet length = %d, want <= 300", len(snippet))
	}
	if !strings.Contains(snippet, "UNIQUEMARKER") {
		t.Errorf("snippet %q does not contain the matched term", snippet)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"drops single chars", "a gallery b", []string{"gallery"}},
		{"keeps underscores", "open_gallery now", []string{"open_gallery", "now"}},
		{"punctuation split", "export, then import!", []string{"export", "then", "import"}},
		{"fallback to fields", "a b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("terms = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("term[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
