// -----------------------------------------------------------------------
// Package prompts loads markdown-based prompt templates with caching
// and placeholder substitution
// -----------------------------------------------------------------------

package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
)

//go:embed templates/*.md
var embeddedTemplates embed.FS

var (
	// ErrTemplateNotFound is returned when a named template does not exist.
	ErrTemplateNotFound = errors.New("prompt template not found")

	// ErrMissingVariable is returned when substitution cannot complete
	// because a placeholder has no provided value.
	ErrMissingVariable = errors.New("missing prompt variable")
)

var (
	metadataSectionRegex = regexp.MustCompile(`(?s)## Metadata\s*\n(.*?)\n##`)
	metadataLineRegex    = regexp.MustCompile(`-\s*\*\*(.+?)\*\*:\s*(.+)`)
	promptSectionRegex   = regexp.MustCompile(`(?s)## Prompt:\s*\n(.*?)(\n##|\z)`)
	placeholderRegex     = regexp.MustCompile(`\{(\w+)\}`)
)

// Template is a parsed prompt template.
type Template struct {
	Name         string
	Text         string
	Metadata     map[string]string
	Placeholders []string
}

// Store loads prompt templates from markdown files. Templates are cached
// after first load; Reload bypasses the cache. When no directory is
// configured the embedded template set is used.
type Store struct {
	dir    string
	fsys   fs.FS
	logger arbor.ILogger

	mu    sync.RWMutex
	cache map[string]*Template
}

// NewStore creates a prompt store. An empty dir selects the embedded
// templates shipped with the binary.
func NewStore(dir string, logger arbor.ILogger) (*Store, error) {
	store := &Store{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*Template),
	}

	if dir == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded templates: %w", err)
		}
		store.fsys = sub
	} else {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("prompts directory not found: %s", dir)
		}
		store.fsys = os.DirFS(dir)
	}

	logger.Debug().Str("dir", dir).Msg("Prompt store initialized")

	return store, nil
}

// Load returns the parsed template for the given name, reading and
// caching it on first use.
func (s *Store) Load(name string) (*Template, error) {
	s.mu.RLock()
	if tmpl, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return tmpl, nil
	}
	s.mu.RUnlock()

	content, err := fs.ReadFile(s.fsys, name+".md")
	if err != nil {
		return nil, fmt.Errorf("%w: %s (available: %s)",
			ErrTemplateNotFound, name, strings.Join(s.ListAvailable(), ", "))
	}

	tmpl, err := parseTemplate(name, string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt '%s': %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = tmpl
	s.mu.Unlock()

	s.logger.Debug().
		Str("prompt", name).
		Str("version", tmpl.Metadata["version"]).
		Strs("placeholders", tmpl.Placeholders).
		Msg("Prompt template loaded")

	return tmpl, nil
}

// Render loads the template and substitutes the given variables. A
// placeholder without a value logs a warning; the render fails only when
// substitution would leave the placeholder unresolved.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	tmpl, err := s.Load(name)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, placeholder := range tmpl.Placeholders {
		if _, ok := vars[placeholder]; !ok {
			missing = append(missing, placeholder)
		}
	}
	if len(missing) > 0 {
		s.logger.Warn().
			Str("prompt", name).
			Strs("missing", missing).
			Msg("Prompt variables not provided")
		return "", fmt.Errorf("%w: prompt '%s' requires %s",
			ErrMissingVariable, name, strings.Join(missing, ", "))
	}

	text := tmpl.Text
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}

	return text, nil
}

// Metadata returns the metadata map for a template.
func (s *Store) Metadata(name string) (map[string]string, error) {
	tmpl, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return tmpl.Metadata, nil
}

// ListAvailable returns the names of all templates, sorted.
func (s *Store) ListAvailable() []string {
	var names []string
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		if name == "README" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearCache drops all cached templates.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]*Template)
	s.mu.Unlock()

	s.logger.Debug().Msg("Prompt cache cleared")
}

// Reload re-reads a template from its source, bypassing the cache.
func (s *Store) Reload(name string) (*Template, error) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
	return s.Load(name)
}

// parseTemplate extracts the metadata and prompt sections from markdown.
func parseTemplate(name, content string) (*Template, error) {
	promptMatch := promptSectionRegex.FindStringSubmatch(content)
	if promptMatch == nil {
		return nil, fmt.Errorf("no '## Prompt:' section found")
	}
	text := strings.TrimSpace(promptMatch[1])

	metadata := make(map[string]string)
	if metaMatch := metadataSectionRegex.FindStringSubmatch(content); metaMatch != nil {
		for _, line := range strings.Split(metaMatch[1], "\n") {
			if kv := metadataLineRegex.FindStringSubmatch(strings.TrimSpace(line)); kv != nil {
				key := strings.ReplaceAll(strings.ToLower(kv[1]), " ", "_")
				metadata[key] = strings.TrimSpace(kv[2])
			}
		}
	}

	seen := make(map[string]bool)
	var placeholders []string
	for _, match := range placeholderRegex.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			placeholders = append(placeholders, match[1])
		}
	}

	return &Template{
		Name:         name,
		Text:         text,
		Metadata:     metadata,
		Placeholders: placeholders,
	}, nil
}

// DefaultDir resolves a prompts directory relative to the working
// directory, returning "" (embedded templates) when none exists.
func DefaultDir() string {
	if info, err := os.Stat("prompts"); err == nil && info.IsDir() {
		return filepath.Clean("prompts")
	}
	return ""
}
