package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

var ErrWriteSummary = errors.New("writing summary")

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %q: %w", ErrWriteSummary, path, err)
	}

	err = os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if err != nil {
		return fmt.Errorf("%w: creating directory for %q: %w", ErrWriteSummary, path, err)
	}

	err = os.WriteFile(path, append(bs, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrWriteSummary, path, err)
	}
	return nil
}

// ReadJSON decodes a summary written by WriteJSON.
func ReadJSON(path string, v any) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(bs, v)
}
