package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// NAMED TEMPLATES
// ============================================================================

// builtinTemplates are the workflows available without any user
// configuration.
func builtinTemplates() map[string][]StepSpec {
	return map[string][]StepSpec{
		"organize downloads": {
			{Command: "go to downloads"},
			{Command: "create folder sorted", ContinueOnFailure: true},
			{Command: "list files"},
		},
		"backup documents": {
			{Command: "go to documents"},
			{Command: "compress folder documents"},
		},
		"evening cleanup": {
			{Command: "go to downloads"},
			{Command: "list files"},
			{Command: "check storage", Guard: "hour >= 18"},
		},
	}
}

// LoadTemplates merges user templates from a YAML file into the
// engine's table. User entries override builtins of the same name.
func (e *Engine) LoadTemplates(path string) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}

	var loaded map[string][]StepSpec
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return fmt.Errorf("parse templates %s: %w", path, err)
	}
	for name, specs := range loaded {
		if _, err := e.Compile(name, specs); err != nil {
			return err
		}
		e.templates[name] = specs
	}
	return nil
}

// Template compiles a named template into a runnable plan.
func (e *Engine) Template(name string) (*Plan, error) {
	specs, ok := e.templates[name]
	if !ok {
		return nil, fmt.Errorf("no workflow template %q", name)
	}
	return e.Compile(name, specs)
}

// TemplateNames lists available templates, sorted.
func (e *Engine) TemplateNames() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
