package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Names of the embedded prompt set.
const (
	Translate = "translate"
	Grammar   = "grammar"
	Sentence  = "sentence"
)

//go:embed prompts/*.poml
var embedded embed.FS

// Manager holds named POML templates
type Manager struct {
	parser    *Parser
	renderer  *Renderer
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewManager creates an empty prompt manager
func NewManager() *Manager {
	return &Manager{
		parser:    NewParser(),
		renderer:  NewRenderer(),
		templates: make(map[string]*Template),
	}
}

// Default returns a manager loaded with the embedded prompt set.
func Default() *Manager {
	m := NewManager()
	if err := m.LoadFS(embedded, "prompts"); err != nil {
		panic(fmt.Sprintf("prompt: embedded templates are invalid: %v", err))
	}
	return m
}

// Load parses poml and stores it under name, replacing any template with
// the same name.
func (m *Manager) Load(name, poml string) (*Template, error) {
	template, err := m.parser.Parse(poml)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	template.Name = name

	m.mu.Lock()
	m.templates[name] = template
	m.mu.Unlock()

	return template, nil
}

// LoadFS loads every *.poml file in dir of fsys. Each template is named
// after its file without the extension.
func (m *Manager) LoadFS(fsys fs.FS, dir string) error {
	files, err := fs.Glob(fsys, path.Join(dir, "*.poml"))
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no templates found in %q", dir)
	}

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		name := strings.TrimSuffix(path.Base(file), ".poml")
		if _, err := m.Load(name, string(content)); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the template stored under name.
func (m *Manager) Get(name string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	template, ok := m.templates[name]
	if !ok {
		return nil, fmt.Errorf("template '%s' not found", name)
	}
	return template, nil
}

// Names returns the sorted names of the loaded templates.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders the named template with values.
func (m *Manager) Render(name string, values map[string]interface{}) (*Rendered, error) {
	template, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return m.renderer.Render(template, &RenderContext{Values: values})
}

// RenderString parses and renders a POML template string in one call
func (m *Manager) RenderString(poml string, values map[string]interface{}) (*Rendered, error) {
	template, err := m.parser.Parse(poml)
	if err != nil {
		return nil, err
	}
	return m.renderer.Render(template, &RenderContext{Values: values})
}

// GetRequiredVariables returns all required variables in a template
func (m *Manager) GetRequiredVariables(template *Template) []*Variable {
	return m.parser.GetRequiredVariables(template)
}

// GetDefaultValues returns a map of default values for all variables
func (m *Manager) GetDefaultValues(template *Template) map[string]interface{} {
	defaults := make(map[string]interface{})
	for name, v := range template.Variables {
		if v.Default == "" {
			continue
		}
		if value, err := m.renderer.parseValue(v.Default, v.Type); err == nil {
			defaults[name] = value
		}
	}
	return defaults
}
