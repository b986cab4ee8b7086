package generate

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/docweaver/docweaver/internal/provider"
	"github.com/docweaver/docweaver/internal/snippet"
)

// Generator abstracts documentation synthesis for one snippet, for
// testability.
type Generator interface {
	Generate(ctx context.Context, sn snippet.Snippet) (string, error)
}

const systemPrompt = `You are a senior technical writer documenting a codebase.
Write clear, accurate Markdown documentation for the code you are given.
Describe what the code actually does; do not invent behavior.`

// ---------- prompt template ----------

var snippetTmpl = template.Must(template.New("snippet").Parse(
	`Document the following {{.Kind}} from {{.File}}.

Qualified name: {{.Name}}
{{- if .Refs}}
It references: {{range $i, $r := .Refs}}{{if $i}}, {{end}}{{$r}}{{end}}
{{- end}}

Source:
` + "```" + `
{{.Text}}
` + "```" + `

Respond in Markdown with exactly these sections:
## Purpose
<what this {{.Kind}} is for, one short paragraph>
## Detailed Flow
<step-by-step description of what it does>
## Inputs
<parameters, configuration, or consumed state>
## Outputs
<return values, produced state, or side effects>
## Interactions
<how it uses or is used by the referenced code>
## Edge Cases
<failure modes and boundary behavior>`))

// Synthesizer turns a snippet into documentation text via an LLM provider.
type Synthesizer struct {
	llm       provider.LLMProvider
	model     string
	maxTokens int
	refs      map[string][]string // snippet ID -> referenced entity IDs
}

// NewSynthesizer creates a Synthesizer. refs supplies each snippet's outgoing
// references for prompt context; nil is allowed.
func NewSynthesizer(llm provider.LLMProvider, model string, maxTokens int, refs map[string][]string) *Synthesizer {
	return &Synthesizer{
		llm:       llm,
		model:     model,
		maxTokens: maxTokens,
		refs:      refs,
	}
}

// Generate renders the prompt for a snippet and drives one completion to the
// end, returning the full generated text.
func (s *Synthesizer) Generate(ctx context.Context, sn snippet.Snippet) (string, error) {
	name := sn.ID
	if sn.Name != "" {
		name = sn.Name
	}

	var buf bytes.Buffer
	err := snippetTmpl.Execute(&buf, struct {
		Kind string
		File string
		Name string
		Refs []string
		Text string
	}{
		Kind: sn.Kind,
		File: sn.File,
		Name: name,
		Refs: s.refs[sn.ID],
		Text: sn.Text,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	req := provider.CompletionRequest{
		Model:     s.model,
		System:    systemPrompt,
		Messages:  []provider.Message{provider.NewUserMessage(buf.String())},
		MaxTokens: s.maxTokens,
	}

	text, err := provider.Text(ctx, s.llm, req)
	if err != nil {
		return "", fmt.Errorf("LLM completion: %w", err)
	}
	return text, nil
}
