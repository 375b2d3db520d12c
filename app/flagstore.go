package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const flagsFileName = "flags.json"

// FlagStore persists small boolean flags for this client installation. The
// only current use is the one-time welcome notification; nothing in here is
// security-relevant.
type FlagStore struct {
	path string

	mu    sync.Mutex
	flags map[string]bool
}

// NewFlagStore loads (or initialises) the flag file under dir.
func NewFlagStore(dir string) (*FlagStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "[NewFlagStore] create state dir")
	}

	fs := &FlagStore{
		path:  filepath.Join(dir, flagsFileName),
		flags: make(map[string]bool),
	}

	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, errors.Wrap(err, "[NewFlagStore] read flags")
	}
	if err := json.Unmarshal(raw, &fs.flags); err != nil {
		// A corrupt flag file only costs a repeated welcome message; start
		// over rather than failing the boot.
		fs.flags = make(map[string]bool)
	}
	return fs, nil
}

// IsSet reports whether a flag has been set.
func (fs *FlagStore) IsSet(name string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.flags[name]
}

// Set marks a flag and persists the file.
func (fs *FlagStore) Set(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.flags[name] = true
	raw, err := json.Marshal(fs.flags)
	if err != nil {
		return errors.Wrap(err, "[FlagStore.Set] encode")
	}
	if err := os.WriteFile(fs.path, raw, 0o644); err != nil {
		return errors.Wrap(err, "[FlagStore.Set] write")
	}
	return nil
}
