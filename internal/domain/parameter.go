package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Parameter — параметр шага (имя и строковое значение).
type Parameter struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Int возвращает значение как int.
func (p Parameter) Int() (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil {
		return 0, fmt.Errorf("parameter %s: invalid integer %q", p.Name, p.Value)
	}
	return v, nil
}

// Bool возвращает значение как bool.
func (p Parameter) Bool() (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(p.Value))
	if err != nil {
		return false, fmt.Errorf("parameter %s: invalid boolean %q", p.Name, p.Value)
	}
	return v, nil
}

func (p Parameter) String() string {
	return p.Name + "=" + p.Value
}

// ParametersFromMap строит список параметров, отсортированный по имени.
func ParametersFromMap(m map[string]string) []Parameter {
	params := make([]Parameter, 0, len(m))
	for name, value := range m {
		params = append(params, Parameter{Name: name, Value: value})
	}
	sort.Slice(params, func(i, j int) bool {
		return params[i].Name < params[j].Name
	})
	return params
}

// ParametersToMap переводит список параметров в map. При повторе побеждает последний.
func ParametersToMap(params []Parameter) map[string]string {
	m := make(map[string]string, len(params))
	for _, p := range params {
		m[p.Name] = p.Value
	}
	return m
}

// LookupParameter ищет параметр по имени.
func LookupParameter(params []Parameter, name string) (Parameter, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Requirement — внешнее требование шага (программа, пакет, файл).
//
// Недоступное требование либо пропускается (optional), либо устанавливается
// отдельным шагом (installable), либо прерывает построение workflow.
type Requirement interface {
	// Name — имя требования. Используется в ID шага-установщика.
	Name() string

	// IsAvailable проверяет, удовлетворено ли требование.
	IsAvailable() bool

	// IsInstallable возвращает true, если требование можно установить.
	IsInstallable() bool

	// IsOptional возвращает true, если без требования можно обойтись.
	IsOptional() bool

	// Parameters — параметры для шага-установщика.
	Parameters() []Parameter
}
