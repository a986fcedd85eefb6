package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/portfolio/backend/internal/model"
)

// FileMessageRepository keeps every message in one pretty-printed JSON array.
// Writers in this process are serialized; another process writing the same
// file is not supported.
type FileMessageRepository struct {
	path string
	mu   sync.Mutex
}

var _ MessageRepository = (*FileMessageRepository)(nil)

// NewFileMessageRepository opens path, creating it as an empty array when
// it does not exist.
func NewFileMessageRepository(path string) (*FileMessageRepository, error) {
	r := &FileMessageRepository{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("repository: create dir: %w", err)
			}
		}
		if err := r.write([]*model.StoredMessage{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("repository: stat %s: %w", path, err)
	}
	return r, nil
}

// Append reads the whole file, adds msg and writes it back.
func (r *FileMessageRepository) Append(ctx context.Context, msg *model.StoredMessage) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, err := r.read()
	if err != nil {
		return 0, err
	}
	// Ids stay unique even across restarts within the same millisecond.
	if n := len(messages); n > 0 && msg.ID <= messages[n-1].ID {
		msg.ID = messages[n-1].ID + 1
	}
	messages = append(messages, msg)
	if err := r.write(messages); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (r *FileMessageRepository) List(ctx context.Context) ([]*model.StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileMessageRepository) MarkRead(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, err := r.read()
	if err != nil {
		return err
	}
	for _, m := range messages {
		if m.ID == id {
			if m.Read {
				return nil
			}
			m.Read = true
			return r.write(messages)
		}
	}
	return ErrNotFound
}

func (r *FileMessageRepository) read() ([]*model.StoredMessage, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("repository: read %s: %w", r.path, err)
	}
	messages := []*model.StoredMessage{}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("repository: decode %s: %w", r.path, err)
	}
	return messages, nil
}

// write replaces the file atomically through a temp file in the same dir.
func (r *FileMessageRepository) write(messages []*model.StoredMessage) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("repository: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("repository: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("repository: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("repository: replace %s: %w", r.path, err)
	}
	return nil
}
