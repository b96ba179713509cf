// Package i18n holds user-facing messages in the languages the driver app ships (en, hi).
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed en/*.json hi/*.json
var fs embed.FS

const (
	LangEN = "en"
	LangHI = "hi"
)

var (
	mu    sync.RWMutex
	packs = map[string]map[string]string{}
)

// Load parses the embedded packs. Missing keys fall back to English.
func Load() error {
	mu.Lock()
	defer mu.Unlock()
	for _, lang := range []string{LangEN, LangHI} {
		data, err := fs.ReadFile(lang + "/messages.json")
		if err != nil {
			return fmt.Errorf("i18n %s: %w", lang, err)
		}
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("i18n %s: %w", lang, err)
		}
		packs[lang] = m
	}
	return nil
}

// Lang picks a supported language from a header value such as "hi-IN,en;q=0.8".
func Lang(header string) string {
	tag := strings.ToLower(strings.TrimSpace(header))
	if i := strings.IndexAny(tag, "-_,; "); i > 0 {
		tag = tag[:i]
	}
	if tag == LangHI {
		return LangHI
	}
	return LangEN
}

// T returns the message for key in lang, then English, then the key itself.
func T(lang, key string) string {
	mu.RLock()
	defer mu.RUnlock()
	if s, ok := packs[lang][key]; ok {
		return s
	}
	if s, ok := packs[LangEN][key]; ok {
		return s
	}
	return key
}
