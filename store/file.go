package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FileBackend stores the mapping as one flat JSON document keyed by
// string-encoded ticket ids. Writes go to a temp file first and are renamed
// into place so a crash mid-write never leaves a half-written store.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Load() (map[string]MirrorRecord, error) {
	bs, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		// first run
		return make(map[string]MirrorRecord), nil
	}
	if err != nil {
		return nil, err
	}

	var records map[string]MirrorRecord
	if err := json.Unmarshal(bs, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if records == nil {
		records = make(map[string]MirrorRecord)
	}
	return records, nil
}

func (f *FileBackend) Save(records map[string]MirrorRecord) error {
	bs, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, bs, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
