package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
)

// CredentialsFileName is the default file name used by FileBackend.
const CredentialsFileName = "credentials.json"

// credentialsFile is the on-disk layout: entries grouped by API origin so
// that one file can hold sessions for several servers.
type credentialsFile struct {
	Origins map[string]map[string]Entry `json:"origins"`
}

// FileBackend stores entries in a JSON file (0600, directory 0700).
// The file is re-read on every call so that concurrent gestion processes
// observe each other's logins and logouts.
type FileBackend struct {
	path   string
	origin string
	mu     sync.Mutex
}

// NewFileBackend creates a backend for origin backed by the file at path.
// The file is created on the first write.
func NewFileBackend(path, origin string) *FileBackend {
	return &FileBackend{path: path, origin: origin}
}

// Path returns the credentials file location.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Origin() string { return f.origin }

func (f *FileBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := doc.Origins[f.origin][key]
	return e, ok, nil
}

func (f *FileBackend) Set(_ context.Context, key string, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	scope := doc.Origins[f.origin]
	if scope == nil {
		scope = make(map[string]Entry)
		doc.Origins[f.origin] = scope
	}
	scope[key] = e
	return f.write(doc)
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	scope, ok := doc.Origins[f.origin]
	if !ok {
		return nil
	}
	if _, ok := scope[key]; !ok {
		return nil
	}
	delete(scope, key)
	if len(scope) == 0 {
		delete(doc.Origins, f.origin)
	}
	return f.write(doc)
}

// Origins lists the origins that hold at least one entry, sorted.
func (f *FileBackend) Origins(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	origins := make([]string, 0, len(doc.Origins))
	for o, scope := range doc.Origins {
		if len(scope) > 0 {
			origins = append(origins, o)
		}
	}
	sort.Strings(origins)
	return origins, nil
}

// read loads the credentials file. A missing or empty file is an empty
// document.
func (f *FileBackend) read() (*credentialsFile, error) {
	doc := &credentialsFile{Origins: make(map[string]map[string]Entry)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", f.path, err)
	}
	if doc.Origins == nil {
		doc.Origins = make(map[string]map[string]Entry)
	}
	return doc, nil
}

// write replaces the credentials file via a temp file and rename.
func (f *FileBackend) write(doc *credentialsFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	// One temp file per write, created with mode 0600.
	tf, err := os.CreateTemp(filepath.Dir(f.path), "credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmp := tf.Name()
	if _, err := tf.Write(data); err != nil {
		tf.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tf.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(f.path)
			if err := os.Rename(tmp, f.path); err == nil {
				return nil
			}
		}
		_ = os.Remove(tmp)
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
