package modules

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
)

// GenomeDescGeneratorModule — имя генератора описания генома.
const GenomeDescGeneratorModule = "genomedescgenerator"

// Порты генератора описания генома.
const (
	GenomePort     = "genome"
	GenomeDescPort = "genomedesc"
)

// Счётчики генератора описания генома.
const (
	CounterSequences = "sequences"
	CounterBases     = "bases"
)

// GenomeDescGenerator строит описание генома: имя и длину каждой
// последовательности FASTA, по строке "<name>\t<length>".
type GenomeDescGenerator struct {
	base
}

// NewGenomeDescGenerator создаёт модуль genomedescgenerator.
func NewGenomeDescGenerator() *GenomeDescGenerator {
	return &GenomeDescGenerator{base: base{
		name:    GenomeDescGeneratorModule,
		inputs:  []engine.PortSpec{{Name: GenomePort, Format: "genome_fasta"}},
		outputs: []engine.PortSpec{{Name: GenomeDescPort, Format: "genome_desc_txt", Compression: domain.CompressionNone}},
	}}
}

// Configure не принимает параметров.
func (m *GenomeDescGenerator) Configure(params []domain.Parameter) error {
	_, err := paramMap(m.name, params)
	return err
}

// Execute читает первый геном входа и записывает описание.
func (m *GenomeDescGenerator) Execute(ctx context.Context, task *Task) (*Result, error) {
	inputs := task.Input(GenomePort)
	if len(inputs) == 0 || inputs[0].File() == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, GenomePort)
	}
	outputs := task.Output(GenomeDescPort)
	if len(outputs) == 0 || outputs[0].File() == "" {
		return nil, fmt.Errorf("no output file for port %s", GenomeDescPort)
	}

	src := inputs[0].File()
	desc, counters, err := describeGenome(ctx, task.Storage, src)
	if err != nil {
		return nil, err
	}

	if err := task.Storage.WriteFile(ctx, outputs[0].File(), desc); err != nil {
		return nil, err
	}

	result := NewResult(fmt.Sprintf("genome description of %s", storage.Base(src)))
	for k, v := range counters {
		result.Counters[k] = v
	}
	return result, nil
}

func describeGenome(ctx context.Context, reg *storage.Registry, location string) ([]byte, map[string]int64, error) {
	rc, err := reg.Open(ctx, location)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", location, err)
	}
	defer rc.Close()

	r, err := storage.NewReader(rc, domain.CompressionFromFilename(location))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress %s: %w", location, err)
	}
	defer r.Close()

	var (
		out      bytes.Buffer
		name     string
		length   int64
		counters = map[string]int64{CounterSequences: 0, CounterBases: 0}
	)

	flush := func() {
		if name == "" {
			return
		}
		fmt.Fprintf(&out, "%s\t%d\n", name, length)
		counters[CounterSequences]++
		counters[CounterBases] += length
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			fields := bytes.Fields(line[1:])
			name = ""
			if len(fields) > 0 {
				name = string(fields[0])
			}
			length = 0
			if err := checkContext(ctx); err != nil {
				return nil, nil, err
			}
			continue
		}
		length += int64(len(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", location, err)
	}
	flush()

	return out.Bytes(), counters, nil
}
