package domain

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownFormat — формат данных не зарегистрирован.
	ErrUnknownFormat = errors.New("unknown data format")

	// ErrDuplicateFormat — формат с таким именем уже зарегистрирован.
	ErrDuplicateFormat = errors.New("duplicate data format")

	// ErrInvalidFormat — у формата нет имени.
	ErrInvalidFormat = errors.New("invalid data format")
)

// DataFormat — логический тип данных, которыми обмениваются шаги.
//
// Шаги связываются через порты одного формата. Содержимое файлов движок
// не интерпретирует.
type DataFormat struct {
	// Name — уникальное имя формата ("reads_fastq", "mapper_results_sam").
	Name string `json:"name" yaml:"name"`

	// Alias — короткое имя для отображения ("reads").
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`

	// Description — описание формата.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Generator — имя модуля, который умеет сгенерировать данные этого формата.
	// Пустое значение — формат нельзя сгенерировать автоматически.
	Generator string `json:"generator,omitempty" yaml:"generator,omitempty"`

	// MaxFiles — сколько физических файлов составляют одну логическую единицу
	// (2 для парных прочтений). 0 трактуется как 1.
	MaxFiles int `json:"max_files,omitempty" yaml:"max_files,omitempty"`

	// Extension — расширение файла по умолчанию (".fq").
	Extension string `json:"extension,omitempty" yaml:"extension,omitempty"`
}

// IsGenerable возвращает true, если для формата есть генератор.
func (f *DataFormat) IsGenerable() bool {
	return f.Generator != ""
}

// DisplayName возвращает alias, а при его отсутствии — имя.
func (f *DataFormat) DisplayName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// FileCount возвращает количество файлов в логической единице.
func (f *DataFormat) FileCount() int {
	if f.MaxFiles < 1 {
		return 1
	}
	return f.MaxFiles
}

func (f *DataFormat) String() string {
	return f.Name
}

// FormatRegistry — потокобезопасный реестр форматов данных.
type FormatRegistry struct {
	mu      sync.RWMutex
	formats map[string]*DataFormat
}

// NewFormatRegistry создаёт реестр с указанными форматами.
func NewFormatRegistry(formats ...DataFormat) (*FormatRegistry, error) {
	r := &FormatRegistry{
		formats: make(map[string]*DataFormat),
	}
	for _, f := range formats {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register регистрирует формат.
func (r *FormatRegistry) Register(f DataFormat) error {
	if f.Name == "" {
		return ErrInvalidFormat
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[f.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFormat, f.Name)
	}
	r.formats[f.Name] = &f
	return nil
}

// Get возвращает формат по имени или alias.
func (r *FormatRegistry) Get(name string) (*DataFormat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formats[name]; ok {
		return f, nil
	}
	for _, f := range r.formats {
		if f.Alias != "" && f.Alias == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// Names возвращает отсортированный список имён форматов.
func (r *FormatRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFormats возвращает встроенные форматы.
func DefaultFormats() []DataFormat {
	return []DataFormat{
		{Name: "reads_fastq", Alias: "reads", Description: "FASTQ reads", MaxFiles: 2, Extension: ".fq"},
		{Name: "genome_fasta", Alias: "genome", Description: "Genome sequences", Extension: ".fasta"},
		{Name: "genome_desc_txt", Alias: "genomedesc", Description: "Genome description", Generator: "genomedescgenerator", Extension: ".txt"},
		{Name: "annotation_gff", Alias: "annotation", Description: "GFF annotation", Extension: ".gff"},
		{Name: "mapper_results_sam", Alias: "mapping", Description: "SAM alignments", Extension: ".sam"},
		{Name: "expression_results_tsv", Alias: "expression", Description: "Expression counts", Extension: ".tsv"},
		{Name: "text", Description: "Plain text", Extension: ".txt"},
	}
}
