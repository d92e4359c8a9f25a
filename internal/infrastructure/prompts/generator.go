package prompts

import (
	"bytes"
	"sort"
	"text/template"

	"browserx/internal/application/port/output"
)

type ActionInfo struct {
	Kind  string
	Usage string
}

type SystemPromptData struct {
	Actions []ActionInfo
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// GenerateSystemPrompt renders the oracle's system prompt with one usage line
// per registered action, sorted by kind.
func GenerateSystemPrompt(baseTemplate string, registry output.ActionRegistry) (string, error) {
	handlers := registry.All()
	infos := make([]ActionInfo, 0, len(handlers))

	for _, h := range handlers {
		infos = append(infos, ActionInfo{
			Kind:  string(h.Kind()),
			Usage: h.Usage(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Kind < infos[j].Kind
	})

	return Render("system", baseTemplate, SystemPromptData{Actions: infos})
}

func Render(name, baseTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
