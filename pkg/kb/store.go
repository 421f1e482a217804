package kb

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadReport records what happened during a directory scan. The public
// contract still degrades every failure to "no data", but the distinction
// between empty-by-design and empty-due-to-error stays visible to callers
// that care (logging, diagnostics).
type LoadReport struct {
	Files       int      // JSON files successfully parsed
	Documents   int      // documents produced
	Skipped     []string // files dropped as malformed
	RootMissing bool     // the knowledge root did not exist
}

// Store loads and caches the knowledge documents from a directory tree of
// JSON files. The document set does not change at runtime, so the first load
// is memoized; Reload re-reads the tree explicitly.
type Store struct {
	root string

	mu     sync.Mutex
	docs   []Document
	report LoadReport
	loaded bool
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Load returns the cached document list, scanning the tree on first use.
func (s *Store) Load() []Document {
	docs, _ := s.LoadWithReport()
	return docs
}

// LoadWithReport is Load plus the scan outcome of the populating pass.
func (s *Store) LoadWithReport() ([]Document, LoadReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.docs, s.report = s.scan()
		s.loaded = true
	}
	return s.docs, s.report
}

// Reload discards the cache and re-reads the directory tree.
func (s *Store) Reload() ([]Document, LoadReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs, s.report = s.scan()
	s.loaded = true
	return s.docs, s.report
}

func (s *Store) scan() ([]Document, LoadReport) {
	var report LoadReport
	docs := []Document{}

	if _, err := os.Stat(s.root); err != nil {
		report.RootMissing = true
		return docs, report
	}

	// WalkDir visits files in lexical order, which keeps document order (and
	// therefore tie-breaking in the retriever) stable across runs.
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		parsed, ok := parseFile(path)
		if !ok {
			report.Skipped = append(report.Skipped, path)
			return nil
		}
		report.Files++

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		parentDir := filepath.Base(filepath.Dir(path))
		for _, raw := range parsed {
			docs = append(docs, normalizeDocument(raw, stem, parentDir))
		}
		return nil
	})

	report.Documents = len(docs)
	return docs, report
}

// parseFile accepts a single JSON object or an array of objects. Anything
// else counts as malformed and the whole file is dropped.
func parseFile(path string) ([]map[string]interface{}, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var single map[string]interface{}
	if err := json.Unmarshal(data, &single); err == nil {
		return []map[string]interface{}{single}, true
	}

	var many []map[string]interface{}
	if err := json.Unmarshal(data, &many); err == nil {
		return many, true
	}

	return nil, false
}
