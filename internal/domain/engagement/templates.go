package engagement

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed surveys.yaml
var surveysYAML []byte

// Question is one survey question. Options are set for radio questions.
type Question struct {
	ID       string   `yaml:"id" json:"id"`
	Type     string   `yaml:"type" json:"type"`
	Question string   `yaml:"question" json:"question"`
	Options  []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Template is the question set handed out for one survey type.
type Template struct {
	Title     string     `yaml:"title" json:"title"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Templates maps survey type to its template.
type Templates map[string]Template

// ParseTemplates decodes a survey template document.
func ParseTemplates(data []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse survey templates: %w", err)
	}
	for name, tmpl := range t {
		if len(tmpl.Questions) == 0 {
			return nil, fmt.Errorf("survey template %q has no questions", name)
		}
		seen := map[string]bool{}
		for _, q := range tmpl.Questions {
			if q.ID == "" || q.Question == "" {
				return nil, fmt.Errorf("survey template %q: question needs id and text", name)
			}
			if seen[q.ID] {
				return nil, fmt.Errorf("survey template %q: duplicate question %q", name, q.ID)
			}
			seen[q.ID] = true
			if q.Type == "radio" && len(q.Options) == 0 {
				return nil, fmt.Errorf("survey template %q: radio question %q has no options", name, q.ID)
			}
		}
	}
	return t, nil
}

// DefaultTemplates returns the built-in survey templates.
func DefaultTemplates() Templates {
	t, err := ParseTemplates(surveysYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Questions returns a copy of the template questions for surveyType.
func (t Templates) Questions(surveyType string) ([]Question, bool) {
	tmpl, ok := t[surveyType]
	if !ok {
		return nil, false
	}
	out := make([]Question, len(tmpl.Questions))
	for i, q := range tmpl.Questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out, true
}

// Types lists the known survey types in sorted order.
func (t Templates) Types() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
