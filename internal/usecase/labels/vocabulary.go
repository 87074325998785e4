package labels

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// defaultVocabulary is the built-in label set used when no vocabulary file
// is configured. One label per line; # starts a comment.
//
//go:embed vocabulary.txt
var defaultVocabulary string

// LoadVocabulary reads a label vocabulary from path, or returns the built-in
// vocabulary when path is empty. Blank lines and comments are skipped,
// duplicates removed, input order preserved.
func LoadVocabulary(path string) ([]string, error) {
	raw := defaultVocabulary
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
		}
		raw = string(data)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		label := strings.TrimSpace(line)
		if label == "" || strings.HasPrefix(label, "#") {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	return out, nil
}
