// Package msgcat renders CLI report lines from YAML templates.
package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultMessages []byte

var funcs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"signed": func(v int) string {
		if v > 0 {
			return fmt.Sprintf("+%d", v)
		}
		return fmt.Sprint(v)
	},
	"fixed": func(v float64) string { return fmt.Sprintf("%.3f", v) },
}

// Catalog holds parsed templates keyed by dot path ("game.end"). It is
// read-only after New.
type Catalog struct {
	templates map[string]*template.Template
}

// New parses the embedded messages, then the *.yaml files in overrideDir
// in name order. An override may only replace a key the embedded set
// defines.
func New(overrideDir string) (*Catalog, error) {
	texts, err := flatten(defaultMessages)
	if err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := applyOverrides(texts, dir); err != nil {
			return nil, err
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(texts))}
	for key, text := range texts {
		t, err := template.New(key).Funcs(funcs).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", key, err)
		}
		c.templates[key] = t
	}
	return c, nil
}

func applyOverrides(texts map[string]string, dir string) error {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("messages dir: %w", err)
		}
	}
	slices.Sort(files)

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		over, err := flatten(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for key, text := range over {
			if _, ok := texts[key]; !ok {
				return fmt.Errorf("%s: unknown message key %q", filepath.Base(path), key)
			}
			texts[key] = text
		}
	}
	return nil
}

// flatten turns nested YAML mappings into dot-path keys. Leaves must be
// strings.
func flatten(raw []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var walk func(prefix string, node any) error
	walk = func(prefix string, node any) error {
		switch v := node.(type) {
		case map[string]any:
			for k, child := range v {
				if err := walk(joinKey(prefix, k), child); err != nil {
					return err
				}
			}
		case string:
			out[prefix] = v
		case nil:
		default:
			return fmt.Errorf("%s: want a string, got %T", prefix, v)
		}
		return nil
	}
	for k, v := range root {
		if err := walk(k, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.templates[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderOr falls back to the key itself when rendering fails.
func (c *Catalog) RenderOr(key string, data any) string {
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}
