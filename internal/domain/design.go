package domain

import "sort"

// Design — исходные данные запуска.
//
// Files — данные, общие для всех образцов (геном, аннотация).
// Samples — образцы; каждый образец — отдельная партиция, для которой
// шаг создаёт свой task.
type Design struct {
	Files   map[string][]string `json:"files,omitempty" yaml:"files,omitempty"`
	Samples []Sample            `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// Sample — один образец.
type Sample struct {
	// ID — идентификатор образца, уникален в design.
	ID string `json:"id" yaml:"id"`

	// Name — имя для файлов и отчётов. Если пусто, используется ID.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Files — файлы образца по форматам (format name → locations).
	Files map[string][]string `json:"files,omitempty" yaml:"files,omitempty"`
}

// DisplayName возвращает имя образца.
func (s Sample) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Formats возвращает отсортированный список форматов, встречающихся в design.
func (d *Design) Formats() []string {
	if d == nil {
		return nil
	}

	seen := make(map[string]bool)
	for format := range d.Files {
		seen[format] = true
	}
	for _, s := range d.Samples {
		for format := range s.Files {
			seen[format] = true
		}
	}

	formats := make([]string, 0, len(seen))
	for format := range seen {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// FirstFile возвращает первый файл указанного формата (общие файлы имеют приоритет).
func (d *Design) FirstFile(format string) (string, bool) {
	if d == nil {
		return "", false
	}
	if files := d.Files[format]; len(files) > 0 {
		return files[0], true
	}
	for _, s := range d.Samples {
		if files := s.Files[format]; len(files) > 0 {
			return files[0], true
		}
	}
	return "", false
}

// DataRefs возвращает ссылки на данные формата: общие файлы и файлы образцов.
func (d *Design) DataRefs(format string) []DataRef {
	if d == nil {
		return nil
	}

	refs := make([]DataRef, 0)
	if files := d.Files[format]; len(files) > 0 {
		refs = append(refs, DataRef{
			Name:        format,
			Format:      format,
			Compression: CompressionFromFilename(files[0]),
			Files:       append([]string(nil), files...),
		})
	}
	for _, s := range d.Samples {
		files := s.Files[format]
		if len(files) == 0 {
			continue
		}
		refs = append(refs, DataRef{
			Name:        s.DisplayName(),
			Sample:      s.ID,
			Format:      format,
			Compression: CompressionFromFilename(files[0]),
			Files:       append([]string(nil), files...),
		})
	}
	return refs
}

// DataRef — ссылка на логическую единицу данных (токен между шагами).
type DataRef struct {
	// Name — логическое имя данных (имя образца или формата).
	Name string `json:"name"`

	// Sample — ID образца. Пусто для общих данных.
	Sample string `json:"sample,omitempty"`

	// Format — имя формата.
	Format string `json:"format"`

	// Compression — сжатие файлов.
	Compression Compression `json:"compression"`

	// Files — расположения файлов (locations).
	Files []string `json:"files"`
}

// File возвращает первый файл или пустую строку.
func (r DataRef) File() string {
	if len(r.Files) == 0 {
		return ""
	}
	return r.Files[0]
}

// IsShared возвращает true для данных, общих для всех образцов.
func (r DataRef) IsShared() bool {
	return r.Sample == ""
}
