package modules

import (
	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
)

// Version — версия встроенных модулей.
const Version = "1.0"

// base — общая часть встроенных модулей: имя и порты.
type base struct {
	name    string
	inputs  []engine.PortSpec
	outputs []engine.PortSpec
}

func (b *base) Name() string                       { return b.name }
func (b *base) Version() string                    { return Version }
func (b *base) InputPorts() []engine.PortSpec      { return b.inputs }
func (b *base) OutputPorts() []engine.PortSpec     { return b.outputs }
func (b *base) Requirements() []domain.Requirement { return nil }
func (b *base) Terminal() bool                     { return false }

// paramMap переводит параметры в map и проверяет, что нет неизвестных.
func paramMap(module string, params []domain.Parameter, known ...string) (map[string]string, error) {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	for _, p := range params {
		if !allowed[p.Name] {
			return nil, invalidParameter(module, p.Name, "unknown parameter")
		}
	}
	return domain.ParametersToMap(params), nil
}
