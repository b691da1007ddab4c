package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// File is a Store kept as one JSON object on disk. Every operation reads
// the file, and every write merges into it and replaces it through a temp
// file and rename, so the daemon and CLI commands can share one file.
type File struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	closed bool
}

// OpenFile opens the store at path on fs. A missing file is an empty store.
func OpenFile(fs afero.Fs, path string) (*File, error) {
	f := &File{fs: fs, path: path}
	if _, err := f.read(); err != nil {
		return nil, err
	}
	return f, nil
}

// read loads the current contents. Must be called with lock held.
func (f *File) read() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)

	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
		}
	}
	return values, nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, ErrClosed
	}
	values, err := f.read()
	if err != nil {
		return false, err
	}
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (f *File) Set(ctx context.Context, key string, v interface{}) error {
	return f.SetMany(ctx, map[string]interface{}{key: v})
}

// SetMany implements Store.
func (f *File) SetMany(_ context.Context, values map[string]interface{}) error {
	encoded := make(map[string]json.RawMessage, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		encoded[key] = data
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	current, err := f.read()
	if err != nil {
		return err
	}
	for k, v := range encoded {
		current[k] = v
	}
	return f.persist(current)
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	current, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := current[key]; !ok {
		return nil
	}
	delete(current, key)
	return f.persist(current)
}

// Close implements Store.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// persist writes values to disk. Must be called with lock held.
func (f *File) persist(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	tmpPath := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmpPath, data, 0600); err != nil {
		return err
	}
	return f.fs.Rename(tmpPath, f.path)
}
