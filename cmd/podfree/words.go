package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/seantiz/podfree/internal/model"
)

// readWords loads an edit list saved by the transcript editor. Both a bare
// array and an object with an editedWords field are accepted.
func readWords(path string) ([]model.EditedWord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}
	data = bytes.TrimSpace(data)

	var words []model.EditedWord
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &words); err != nil {
			return nil, fmt.Errorf("parse words %s: %w", path, err)
		}
		return words, nil
	}

	var doc struct {
		EditedWords []model.EditedWord `json:"editedWords"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse words %s: %w", path, err)
	}
	return doc.EditedWords, nil
}
