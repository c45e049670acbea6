package gemini

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"
)

//go:embed prompts/profile_extraction.tmpl
var defaultPromptTemplate string

// promptData represents the data passed to the prompt template
type promptData struct {
	Transcript string
}

// LoadPromptTemplate parses the template at path, or the built-in Korean
// extraction prompt when path is empty.
func LoadPromptTemplate(path string) (*template.Template, error) {
	content := defaultPromptTemplate
	name := "profile_extraction"

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template: %v", ErrInvalidConfig, err)
		}
		content = string(raw)
		name = path
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, transcript string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Transcript: transcript}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
