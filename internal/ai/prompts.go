package ai

import (
	_ "embed"
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompt is one named prompt pair from the embedded registry.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type promptRegistry struct {
	prompts   map[string]Prompt
	templates map[string]*template.Template
}

func loadPrompts() (*promptRegistry, error) {
	prompts := make(map[string]Prompt)
	if err := yaml.Unmarshal(promptsYAML, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt registry: %w", err)
	}

	templates := make(map[string]*template.Template, len(prompts))
	for name, prompt := range prompts {
		tmpl, err := template.New(name).Parse(prompt.User)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt template %q: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &promptRegistry{prompts: prompts, templates: templates}, nil
}

// Render produces the system prompt and the filled-in user prompt for name.
func (r *promptRegistry) Render(name string, data interface{}) (system, user string, err error) {
	prompt, ok := r.prompts[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt %q", name)
	}

	var buf bytes.Buffer
	if err := r.templates[name].Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render prompt %q: %w", name, err)
	}
	return prompt.System, buf.String(), nil
}
