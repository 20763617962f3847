package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
)

// WriteBatch serializes the dataset as an /analyze request body at path.
func WriteBatch(dataset Dataset, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := EncodeBatch(file, dataset); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

// EncodeBatch writes the dataset as an indented /analyze request body.
func EncodeBatch(w io.Writer, dataset Dataset) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(domain.PayloadsFromRecords(dataset.Records))
}
