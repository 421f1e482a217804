package transcript

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ash-assistant-be/pkg/llm"
)

// Store persists conversation turns as one append-only JSONL file per
// session, named by session id.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// NewSessionID generates a fresh short random hex token.
func NewSessionID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unreachable; keep the
		// contract total anyway
		return "session"
	}
	return hex.EncodeToString(buf)
}

// Start creates or truncates the backing file for a session.
func (s *Store) Start(sessionID string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.Create(s.path(sessionID))
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	return f.Close()
}

// AppendTurn appends one {role, content} JSON line to the session file,
// creating it first if absent.
func (s *Store) AppendTurn(sessionID, role, content string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}

	f, err := os.OpenFile(s.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(llm.Message{Role: role, Content: content})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Load reads a transcript file back into ordered messages. Lines that fail
// to parse contribute nothing; a file that cannot be read at all yields the
// derived session id with an empty message list rather than an error.
func (s *Store) Load(path string) (string, []llm.Message) {
	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	messages := []llm.Message{}

	f, err := os.Open(path)
	if err != nil {
		return sessionID, messages
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		var msg llm.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return sessionID, messages
}

// LoadSession is Load addressed by session id instead of path.
func (s *Store) LoadSession(sessionID string) (string, []llm.Message) {
	return s.Load(s.path(sessionID))
}

// ListRecent lists transcript file paths sorted by modification time
// descending, capped at limit.
func (s *Store) ListRecent(limit int) []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return []string{}
	}

	type candidate struct {
		path  string
		mtime int64
	}
	files := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{
			path:  filepath.Join(s.dir, entry.Name()),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].mtime > files[j].mtime
	})

	if limit >= 0 && limit < len(files) {
		files = files[:limit]
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.path)
	}
	return out
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}
