package engine

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/shaiso/Seqflow/internal/domain"
)

// TemplateContext — контекст для рендеринга параметров шагов.
//
// Используется в Go templates:
//   - {{ .Globals.genome }}
//   - {{ .Env.HOME }}
type TemplateContext struct {
	// Globals — глобальные параметры workflow.
	Globals map[string]string

	// Env — переменные окружения.
	Env map[string]string
}

// NewTemplateContext создаёт контекст с глобальными параметрами и
// текущими переменными окружения.
func NewTemplateContext(globals map[string]string) *TemplateContext {
	if globals == nil {
		globals = make(map[string]string)
	}
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return &TemplateContext{
		Globals: globals,
		Env:     env,
	}
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
	},

	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"split": func(sep, s string) []string {
		return strings.Split(s, sep)
	},
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

// Render рендерит строковый шаблон с контекстом.
// Обращение к отсутствующему ключу — ошибка.
func Render(tmpl string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderParameters рендерит значения параметров и возвращает их
// отсортированными по имени.
func RenderParameters(params map[string]string, ctx *TemplateContext) ([]domain.Parameter, error) {
	if ctx == nil {
		ctx = NewTemplateContext(nil)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]domain.Parameter, 0, len(params))
	for _, name := range names {
		value, err := Render(params[name], ctx)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		result = append(result, domain.Parameter{Name: name, Value: value})
	}
	return result, nil
}
