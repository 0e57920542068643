package modules

import (
	"context"
	"fmt"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Счётчики модулей копирования.
const (
	CounterFilesCopied = "files_copied"
	CounterBytesCopied = "bytes_copied"
)

// CopyInput — адаптер входа шага.
//
// Копирует данные производителя в рабочий каталог потребителя, при
// необходимости меняя сжатие.
//
// Параметры:
//
//	format                      — формат данных (обязательный)
//	output.compression          — сжатие выхода (GZIP, BZIP2, NONE)
//	design.input                — данные пришли из DESIGN
//	output.compressions.allowed — допустимые сжатия потребителя
type CopyInput struct {
	base
	compression domain.Compression
	designInput bool
}

// NewCopyInput создаёт модуль copyinput.
func NewCopyInput() *CopyInput {
	return &CopyInput{base: base{name: engine.CopyInputModule}}
}

// Configure читает параметры и объявляет порты.
func (m *CopyInput) Configure(params []domain.Parameter) error {
	pm, err := paramMap(m.name, params,
		engine.ParamFormat, engine.ParamOutputCompression,
		engine.ParamDesignInput, engine.ParamAllowedCompressions)
	if err != nil {
		return err
	}

	format := pm[engine.ParamFormat]
	if format == "" {
		return invalidParameter(m.name, engine.ParamFormat, "format is required")
	}

	m.compression, err = domain.ParseCompression(pm[engine.ParamOutputCompression])
	if err != nil {
		return invalidParameter(m.name, engine.ParamOutputCompression, err.Error())
	}

	if v := pm[engine.ParamDesignInput]; v != "" {
		p := domain.Parameter{Name: engine.ParamDesignInput, Value: v}
		if m.designInput, err = p.Bool(); err != nil {
			return invalidParameter(m.name, engine.ParamDesignInput, err.Error())
		}
	}

	if v := pm[engine.ParamAllowedCompressions]; v != "" {
		allowed, err := domain.ParseCompressionSet(v)
		if err != nil {
			return invalidParameter(m.name, engine.ParamAllowedCompressions, err.Error())
		}
		if !allowed.Contains(m.compression) {
			return invalidParameter(m.name, engine.ParamOutputCompression,
				fmt.Sprintf("%s is not one of %s", m.compression, allowed))
		}
	}

	m.inputs = []engine.PortSpec{{Name: engine.CopyInputPortIn, Format: format}}
	m.outputs = []engine.PortSpec{{Name: engine.CopyInputPortOut, Format: format, Compression: m.compression}}
	return nil
}

// Execute копирует каждый файл входа в соответствующий файл выхода.
func (m *CopyInput) Execute(ctx context.Context, task *Task) (*Result, error) {
	inputs := task.Input(engine.CopyInputPortIn)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, engine.CopyInputPortIn)
	}
	outputs := task.Output(engine.CopyInputPortOut)
	if len(outputs) != len(inputs) {
		return nil, fmt.Errorf("copyinput: %d input refs but %d output refs", len(inputs), len(outputs))
	}

	result := NewResult(fmt.Sprintf("copy %d data to %s compression", len(inputs), m.compression))

	for i, in := range inputs {
		out := outputs[i]
		if len(out.Files) < len(in.Files) {
			return nil, fmt.Errorf("copyinput: %s has %d files, output has %d", in.Name, len(in.Files), len(out.Files))
		}
		for j, src := range in.Files {
			if err := checkContext(ctx); err != nil {
				return nil, err
			}
			n, err := storage.CopyData(ctx, task.Storage, src, out.Files[j], m.compression)
			if err != nil {
				return nil, err
			}
			task.Logger.Debug("input copied", "src", src, "dst", out.Files[j], "bytes", n, "design_input", m.designInput)
			result.Counters[CounterFilesCopied]++
			result.Counters[CounterBytesCopied] += n
		}
	}

	return result, nil
}

// CopyOutput — адаптер копирования результатов шага в выходной каталог.
//
// Параметры:
//
//	port   — имя выхода шага-производителя (обязательный)
//	format — формат данных (обязательный)
//
// Файлы копируются в каталог результатов task с тем же именем и сжатием.
type CopyOutput struct {
	base
	port string
}

// NewCopyOutput создаёт модуль copyoutput.
func NewCopyOutput() *CopyOutput {
	return &CopyOutput{base: base{name: engine.CopyOutputModule}}
}

// Configure читает параметры и объявляет вход.
func (m *CopyOutput) Configure(params []domain.Parameter) error {
	pm, err := paramMap(m.name, params, engine.ParamPort, engine.ParamFormat)
	if err != nil {
		return err
	}

	m.port = pm[engine.ParamPort]
	if m.port == "" {
		return invalidParameter(m.name, engine.ParamPort, "port is required")
	}
	format := pm[engine.ParamFormat]
	if format == "" {
		return invalidParameter(m.name, engine.ParamFormat, "format is required")
	}

	m.inputs = []engine.PortSpec{{Name: m.port, Format: format}}
	return nil
}

// Execute копирует файлы входа в выходной каталог.
func (m *CopyOutput) Execute(ctx context.Context, task *Task) (*Result, error) {
	inputs := task.Input(m.port)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, m.port)
	}

	result := NewResult(fmt.Sprintf("copy %s results to %s", m.port, task.Context.OutputDir))

	for _, in := range inputs {
		for _, src := range in.Files {
			if err := checkContext(ctx); err != nil {
				return nil, err
			}
			dst := storage.Join(task.Context.OutputDir, storage.Base(src))
			if dst == src {
				continue
			}
			n, err := storage.CopyData(ctx, task.Storage, src, dst, domain.CompressionFromFilename(src))
			if err != nil {
				return nil, err
			}
			task.Logger.Debug("result copied", "src", src, "dst", dst, "bytes", n)
			result.Counters[CounterFilesCopied]++
			result.Counters[CounterBytesCopied] += n
		}
	}

	return result, nil
}
