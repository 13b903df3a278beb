package document

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Key layout under the storage root.
const (
	TicketPrefix = "tickets/reservations"
	OrderPrefix  = "tickets/restaurant"
)

// TicketKey is the storage key of a ticket PDF.
func TicketKey(number string) string { return path.Join(TicketPrefix, number+".pdf") }

// OrderKey is the storage key of a restaurant order PDF.
func OrderKey(number string) string { return path.Join(OrderPrefix, number+".pdf") }

// FileStore keeps documents under a root directory.  Keys are slash
// separated and relative; the stored key is what gets persisted in the
// ticket's file column.
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{root: dir} }

func (s *FileStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Save writes data atomically and returns the key.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return key, nil
}

// Open reads a stored document.  A missing file returns an error wrapping
// os.ErrNotExist.
func (s *FileStore) Open(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return b, nil
}
