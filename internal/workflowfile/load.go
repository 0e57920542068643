package workflowfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Format — формат файла workflow.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// DetectFormat определяет формат по расширению файла.
func DetectFormat(location string) (Format, error) {
	switch strings.ToLower(path.Ext(storage.Base(location))) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFileFormat, location)
	}
}

// Load читает, разбирает и проверяет файл workflow.
func Load(ctx context.Context, reg *storage.Registry, location string) (*domain.WorkflowSpec, error) {
	format, err := DetectFormat(location)
	if err != nil {
		return nil, err
	}
	data, err := reg.ReadFile(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	spec, err := Parse(data, format, location)
	if err != nil {
		return nil, err
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// Parse разбирает описание workflow. filename используется в сообщениях об ошибках.
func Parse(data []byte, format Format, filename string) (*domain.WorkflowSpec, error) {
	switch format {
	case FormatYAML:
		var spec domain.WorkflowSpec
		if err := decodeYAML(data, &spec); err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrParse, filename, err)
		}
		return &spec, nil
	case FormatHCL:
		return parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileFormat, format)
	}
}

// LoadDesign читает design из отдельного файла.
func LoadDesign(ctx context.Context, reg *storage.Registry, location string) (*domain.Design, error) {
	format, err := DetectFormat(location)
	if err != nil {
		return nil, err
	}
	data, err := reg.ReadFile(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read design file: %w", err)
	}

	design, err := ParseDesign(data, format, location)
	if err != nil {
		return nil, err
	}
	if err := ValidateDesign(design); err != nil {
		return nil, err
	}
	return design, nil
}

// ParseDesign разбирает design.
func ParseDesign(data []byte, format Format, filename string) (*domain.Design, error) {
	switch format {
	case FormatYAML:
		var design domain.Design
		if err := decodeYAML(data, &design); err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrParse, filename, err)
		}
		return &design, nil
	case FormatHCL:
		return parseHCLDesign(data, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileFormat, format)
	}
}

// decodeYAML декодирует документ, отвергая неизвестные поля.
// Пустой документ не является ошибкой.
func decodeYAML(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
