// Package notes keeps sticky notes in a plain text file, one note per line,
// and exposes them to MCP clients.
package notes

import (
	"os"
	"strings"
	"sync"

	apierrors "github.com/westshgit/apidoc/errors"
)

// Replies shown to the caller.
const (
	Saved   = "Note Saved!"
	NoNotes = "No notes yet!"
)

// DefaultFile is the notes file used when none is configured.
const DefaultFile = "notes.txt"

// Store appends notes to a file and reads them back.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a store backed by path, creating the file if it is missing.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apierrors.IO(err, apierrors.WithMetadata("path", path))
	}
	if err := f.Close(); err != nil {
		return nil, apierrors.IO(err, apierrors.WithMetadata("path", path))
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Add appends message as a new line.
func (s *Store) Add(message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", apierrors.IO(err, apierrors.WithMetadata("path", s.path))
	}
	if _, err := f.WriteString(message + "\n"); err != nil {
		f.Close()
		return "", apierrors.IO(err, apierrors.WithMetadata("path", s.path))
	}
	if err := f.Close(); err != nil {
		return "", apierrors.IO(err, apierrors.WithMetadata("path", s.path))
	}
	return Saved, nil
}

// All returns every note, or NoNotes when the file is empty.
func (s *Store) All() (string, error) {
	content, err := s.read()
	if err != nil {
		return "", err
	}
	if content == "" {
		return NoNotes, nil
	}
	return content, nil
}

// Latest returns the most recently added note, or NoNotes.
func (s *Store) Latest() (string, error) {
	content, err := s.read()
	if err != nil {
		return "", err
	}
	if content == "" {
		return NoNotes, nil
	}
	lines := strings.Split(content, "\n")
	return strings.TrimSuffix(lines[len(lines)-1], "\r"), nil
}

// SummaryPrompt asks for a summary of all notes.
func (s *Store) SummaryPrompt() (string, error) {
	content, err := s.All()
	if err != nil {
		return "", err
	}
	if content == NoNotes {
		return "There are no notes yet.", nil
	}
	return "Summarize the current notes: " + content, nil
}

func (s *Store) read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", apierrors.IO(err, apierrors.WithMetadata("path", s.path))
	}
	return strings.TrimSpace(string(data)), nil
}
