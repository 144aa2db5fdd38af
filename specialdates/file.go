package specialdates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the list under Key in a JSON object on disk, next to
// any other keys the file holds.
type FileStore struct {
	Path string
}

// Load returns the stored list, or nothing when the file or key is absent.
func (f FileStore) Load() ([]SpecialDate, error) {
	kv, err := f.read()
	if err != nil {
		return nil, err
	}
	raw, ok := kv[Key]
	if !ok {
		return nil, nil
	}
	var dates []SpecialDate
	if err := json.Unmarshal(raw, &dates); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key, err)
	}
	return dates, nil
}

// Save replaces the list.
func (f FileStore) Save(dates []SpecialDate) error {
	kv, err := f.read()
	if err != nil {
		return err
	}
	if dates == nil {
		dates = []SpecialDate{}
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	kv[Key] = raw
	data, err := json.MarshalIndent(kv, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f FileStore) read() (map[string]json.RawMessage, error) {
	kv := make(map[string]json.RawMessage)
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return kv, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(data, &kv); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return kv, nil
}
