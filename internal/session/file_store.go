package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileTokenStore keeps the credential in a small JSON document keyed by name,
// so other client settings can share the file without clobbering the token.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
	key  string
}

func NewFileTokenStore(path, key string) *FileTokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	return &FileTokenStore{path: path, key: key}
}

// DefaultTokenPath resolves <user config dir>/storefront/credentials.json.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "storefront", "credentials.json"), nil
}

func (f *FileTokenStore) Path() string {
	return f.path
}

func (f *FileTokenStore) Load(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", err
	}
	token := doc[f.key]
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (f *FileTokenStore) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc[f.key] = token
	return f.write(doc)
}

func (f *FileTokenStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc[f.key]; !ok {
		return nil
	}
	delete(doc, f.key)
	if len(doc) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove credentials file: %w", err)
		}
		return nil
	}
	return f.write(doc)
}

func (f *FileTokenStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	doc := map[string]string{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal credentials file: %w", err)
	}
	return doc, nil
}

// write replaces the file atomically with 0600 permissions.
func (f *FileTokenStore) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
