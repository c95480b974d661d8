// Package prompts holds the LLM prompt templates, embedded as JSON objects
// mapping a key to its template text.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var (
	mu     sync.Mutex
	loaded = map[string]map[string]string{}
)

// Get returns the template stored under key in file (a bare name such as
// "knowledge.json").
func Get(file, key string) (string, error) {
	set, err := load(file)
	if err != nil {
		return "", err
	}
	text, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return text, nil
}

// MustGet is Get for templates that ship with the binary; a miss panics.
func MustGet(file, key string) string {
	text, err := Get(file, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return text
}

// Format substitutes every {{.Name}} placeholder that has an entry in data.
// Unknown placeholders are left as they are.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(data))
	for name, value := range data {
		pairs = append(pairs, "{{."+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// List returns the keys of file in sorted order.
func List(file string) ([]string, error) {
	set, err := load(file)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// ClearCache forgets parsed files so the next lookup reads them again.
func ClearCache() {
	mu.Lock()
	loaded = map[string]map[string]string{}
	mu.Unlock()
}

func load(file string) (map[string]string, error) {
	mu.Lock()
	defer mu.Unlock()

	if set, ok := loaded[file]; ok {
		return set, nil
	}
	data, err := promptFiles.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", file, err)
	}
	var set map[string]string
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", file, err)
	}
	loaded[file] = set
	return set, nil
}
