package storage

import (
	"os"
	"path/filepath"
	"strings"

	"hreq/internal/errdef"
	"hreq/internal/history"
)

const (
	// Secure file permissions - owner read/write only
	jsonSecureFileMode = 0600 // -rw-------
	jsonSecureDirMode  = 0700 // drwx------
)

// SaveHistoryFile writes the store as a history document. An empty path means
// the user cancelled the file selection and nothing is written.
func SaveHistoryFile(path string, store *history.Store) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}

	data, err := store.Marshal()
	if err != nil {
		return false, errdef.Wrap(errdef.CodeHistory, err, "encode history")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, jsonSecureDirMode); err != nil {
			return false, errdef.Wrap(errdef.CodeFilesystem, err, "create %s", dir)
		}
	}

	if err := os.WriteFile(path, data, jsonSecureFileMode); err != nil {
		return false, errdef.Wrap(errdef.CodeFilesystem, err, "write %s", path)
	}
	return true, nil
}

// LoadHistoryFile reads a history document into a new store. An empty path
// returns a nil store and no error.
func LoadHistoryFile(path string) (*history.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read %s", path)
	}

	return history.Unmarshal(data)
}
