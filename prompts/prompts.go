// Package prompts stores named prompt templates and resolves them
// against caller-supplied variables.
//
// Templates use {variable} placeholders. A template declares which
// variables it requires; resolution fails if any are missing, and
// unknown extra variables are ignored.
package prompts

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors.
var (
	ErrNotFound    = errors.New("prompt not found")
	ErrDuplicate   = errors.New("prompt already registered")
	ErrInvalidName = errors.New("invalid prompt name")
	ErrClosed      = errors.New("prompt registry closed")
)

// MissingVariablesError reports which required variables a Resolve call
// did not supply.
type MissingVariablesError struct {
	Prompt  string
	Missing []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("prompt %q missing required variables: %s",
		e.Prompt, strings.Join(e.Missing, ", "))
}

// Template is a registered prompt.
type Template struct {
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	Required   []string  `json:"required_variables,omitempty"`
	Registered time.Time `json:"registered_at"`
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Variables returns the placeholder names appearing in the template
// text, sorted and deduplicated.
func (t Template) Variables() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(t.Text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	sort.Strings(out)
	return out
}

// Registry holds prompt templates in memory.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Template
	closed atomic.Bool
}

// NewRegistry creates an empty prompt registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Template)}
}

// Register stores a template. When required is nil the required set
// defaults to every placeholder in the text. Registering an existing
// name fails with ErrDuplicate.
func (r *Registry) Register(name, text string, required []string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	tpl := Template{
		Name:       name,
		Text:       text,
		Required:   required,
		Registered: time.Now(),
	}
	if tpl.Required == nil {
		tpl.Required = tpl.Variables()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.byName[name] = tpl
	return nil
}

// Replace stores a template, overwriting any existing registration.
func (r *Registry) Replace(name, text string, required []string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	tpl := Template{
		Name:       name,
		Text:       text,
		Required:   required,
		Registered: time.Now(),
	}
	if tpl.Required == nil {
		tpl.Required = tpl.Variables()
	}

	r.mu.Lock()
	r.byName[name] = tpl
	r.mu.Unlock()
	return nil
}

// Get returns a registered template.
func (r *Registry) Get(name string) (Template, error) {
	if r.closed.Load() {
		return Template{}, ErrClosed
	}

	r.mu.RLock()
	tpl, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return tpl, nil
}

// Resolve substitutes variables into the named template. All declared
// required variables must be present; extras are ignored.
func (r *Registry) Resolve(name string, vars map[string]string) (string, error) {
	tpl, err := r.Get(name)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, req := range tpl.Required {
		if _, ok := vars[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingVariablesError{Prompt: name, Missing: missing}
	}

	out := placeholderRe.ReplaceAllStringFunc(tpl.Text, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
	return out, nil
}

// List returns all templates sorted by name.
func (r *Registry) List() ([]Template, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.mu.RLock()
	out := make([]Template, 0, len(r.byName))
	for _, tpl := range r.byName {
		out = append(out, tpl)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close marks the registry closed.
func (r *Registry) Close() error {
	r.closed.Store(true)
	return nil
}
