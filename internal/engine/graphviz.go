package engine

import (
	"fmt"
	"strings"

	"github.com/shaiso/Seqflow/internal/domain"
)

// ToDOT возвращает граф workflow в формате Graphviz.
//
// Шаги FIRST и CHECKER не выводятся. Связи портов подписываются
// форматом данных, остальные зависимости рисуются зелёным.
func ToDOT(w *Workflow) string {
	var b strings.Builder

	name := w.Name
	if name == "" {
		name = "workflow"
	}

	fmt.Fprintf(&b, "digraph %s {\n", quoteDOT(name))
	b.WriteString("  node [shape=box];\n")

	hidden := func(s *Step) bool {
		return s.Type == domain.StepTypeFirst || s.Type == domain.StepTypeChecker
	}

	ids := make(map[*Step]string, len(w.steps))
	for i, s := range w.steps {
		ids[s] = fmt.Sprintf("s%d", i)
	}

	for _, s := range w.steps {
		if hidden(s) {
			continue
		}
		label := s.ID
		if s.ModuleName != "" && s.ModuleName != s.ID {
			label += "\\n(" + s.ModuleName + ")"
		}
		attrs := "label=" + quoteDOT(label)
		if s.Skip {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&b, "  %s [%s];\n", ids[s], attrs)
	}

	for _, s := range w.steps {
		if hidden(s) {
			continue
		}

		linked := make(map[*Step]bool)
		for _, in := range s.inputs {
			if !in.IsLinked() {
				continue
			}
			producer := in.Link().Step()
			linked[producer] = true
			if hidden(producer) {
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s [label=%s];\n",
				ids[producer], ids[s], quoteDOT(in.Format.DisplayName()))
		}

		for _, dep := range s.Dependencies() {
			if linked[dep] || hidden(dep) {
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s [color=green];\n", ids[dep], ids[s])
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func quoteDOT(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
