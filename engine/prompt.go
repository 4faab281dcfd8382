package engine

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/tool"
)

var (
	//go:embed data/instructions/chat.md.tmpl
	chatInst     string
	chatInstTmpl = template.Must(template.New("").Funcs(template.FuncMap{
		"firstLine": func(s string) string {
			line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
			return strings.TrimSpace(line)
		},
	}).Parse(chatInst))
)

type ChatPromptValues struct {
	Name   string
	Role   string
	System string
	Tools  []tool.ToolDescriptor
}

// BuildSystemPrompt renders the system instructions for one conversation,
// listing every registered tool by name with the first line of its
// description.
func (e *Engine) BuildSystemPrompt() (string, error) {
	values := &ChatPromptValues{
		Name:   e.name,
		Role:   e.role,
		System: e.system,
	}
	values.Tools = e.toolDescriptors()

	var buf strings.Builder
	if err := chatInstTmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(err, "failed to render system prompt")
	}
	return buf.String(), nil
}
