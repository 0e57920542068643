package engine

import (
	"github.com/shaiso/Seqflow/internal/domain"
)

// PortSpec — объявление порта модулем.
//
// Модуль объявляет форматы по имени, а шаг материализует их через
// FormatRegistry при конфигурации.
type PortSpec struct {
	// Name — имя порта, уникально среди входов (выходов) шага.
	Name string

	// Format — имя формата данных.
	Format string

	// Compressions — допустимое сжатие для входа. Нулевое значение — любое.
	Compressions domain.CompressionSet

	// Compression — сжатие данных выхода.
	Compression domain.Compression

	// RequiredInWorkingDir — вход должен лежать в рабочем каталоге шага
	// (в том же хранилище).
	RequiredInWorkingDir bool
}

// InputPort — входной порт шага.
//
// Связывается ровно с одним выходным портом.
type InputPort struct {
	Name                 string
	Format               *domain.DataFormat
	Compressions         domain.CompressionSet
	RequiredInWorkingDir bool

	step *Step
	link *OutputPort
}

// Step возвращает шаг, которому принадлежит порт.
func (p *InputPort) Step() *Step {
	return p.step
}

// Link возвращает связанный выходной порт или nil.
func (p *InputPort) Link() *OutputPort {
	return p.link
}

// IsLinked возвращает true, если порт связан.
func (p *InputPort) IsLinked() bool {
	return p.link != nil
}

// OutputPort — выходной порт шага. Может питать любое число входов.
type OutputPort struct {
	Name        string
	Format      *domain.DataFormat
	Compression domain.Compression

	step  *Step
	links []*InputPort
}

// Step возвращает шаг, которому принадлежит порт.
func (p *OutputPort) Step() *Step {
	return p.step
}

// Links возвращает связанные входные порты в порядке связывания.
func (p *OutputPort) Links() []*InputPort {
	return p.links
}

// link связывает выход с входом с обеих сторон и добавляет
// зависимость шага-потребителя от шага-производителя.
func link(in *InputPort, out *OutputPort) {
	in.link = out
	out.links = append(out.links, in)
	in.step.addDependency(out.step)
}

func sameFormat(a, b *domain.DataFormat) bool {
	return a != nil && b != nil && a.Name == b.Name
}
