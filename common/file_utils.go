package common

import (
	"encoding/json"
	"fmt"
	"os"
)

func CreateDirectoryIfNotExists(dirPath string, perm os.FileMode) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, perm)
	}

	return nil
}

// LoadJSON decodes the JSON file at path into value. Fields absent from the
// file keep whatever value already holds.
func LoadJSON(path string, value any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %v. error: %w", path, err)
	}

	defer f.Close()

	if err := json.NewDecoder(f).Decode(value); err != nil {
		return fmt.Errorf("failed to decode %v. error: %w", path, err)
	}

	return nil
}
