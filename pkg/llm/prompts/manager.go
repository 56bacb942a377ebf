package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"slowlooking/pkg/model"
	"slowlooking/pkg/schema"
)

// JourneyTemplate is the template used to request a journey.
const JourneyTemplate = "journey.tmpl"

//go:embed templates/*.tmpl
var builtin embed.FS

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
	dir  string
}

// JourneyData is the input of the journey template.
type JourneyData struct {
	MinSteps    int
	MaxSteps    int
	MinLookAway int
	MaxLookAway int
	ConceptTags []string
	Schema      string
}

// NewManager loads the built-in templates. When dir is non-empty, any .tmpl
// file found there replaces the built-in template of the same name.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{dir: dir}
	m.root = template.New("root").Funcs(template.FuncMap{
		"join": strings.Join,
	})

	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := m.load(sub); err != nil {
		return nil, fmt.Errorf("loading built-in templates: %w", err)
	}

	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("prompt dir: %w", err)
		}
		if err := m.load(os.DirFS(dir)); err != nil {
			return nil, fmt.Errorf("loading templates: %w", err)
		}
	}

	return m, nil
}

func (m *Manager) load(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(path)
		if _, err = m.root.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Journey renders the journey request prompt.
func (m *Manager) Journey() (string, error) {
	s, err := schema.JSONSchema()
	if err != nil {
		return "", err
	}
	tags := make([]string, len(model.ConceptTags))
	for i, t := range model.ConceptTags {
		tags[i] = string(t)
	}
	return m.Render(JourneyTemplate, JourneyData{
		MinSteps:    schema.MinSteps,
		MaxSteps:    schema.MaxSteps,
		MinLookAway: schema.MinLookAway,
		MaxLookAway: schema.MaxLookAway,
		ConceptTags: tags,
		Schema:      s,
	})
}
