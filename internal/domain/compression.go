package domain

import (
	"fmt"
	"path"
	"strings"
)

// Compression — тип сжатия файла данных.
type Compression int

// Типы сжатия в каноническом порядке.
// Порядок важен: CompressionSet итерирует именно в нём, и это определяет
// детерминированный выбор сжатия для адаптеров.
const (
	CompressionGzip Compression = iota
	CompressionBzip2
	CompressionNone

	compressionCount
)

var compressionInfo = [...]struct {
	name      string
	encoding  string
	extension string
}{
	CompressionGzip:  {name: "GZIP", encoding: "gzip", extension: ".gz"},
	CompressionBzip2: {name: "BZIP2", encoding: "bzip2", extension: ".bz2"},
	CompressionNone:  {name: "NONE", encoding: "", extension: ""},
}

// String возвращает имя типа сжатия.
func (c Compression) String() string {
	if c < 0 || c >= compressionCount {
		return "UNKNOWN"
	}
	return compressionInfo[c].name
}

// ContentEncoding возвращает значение Content-Encoding ("gzip", "bzip2", "").
func (c Compression) ContentEncoding() string {
	if c < 0 || c >= compressionCount {
		return ""
	}
	return compressionInfo[c].encoding
}

// Extension возвращает расширение файла (".gz", ".bz2", "").
func (c Compression) Extension() string {
	if c < 0 || c >= compressionCount {
		return ""
	}
	return compressionInfo[c].extension
}

// MarshalText реализует encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if c < 0 || c >= compressionCount {
		return nil, fmt.Errorf("unknown compression: %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCompression парсит имя типа сжатия (регистр не важен).
// Пустая строка означает NONE.
func ParseCompression(s string) (Compression, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CompressionNone, nil
	}
	for c := Compression(0); c < compressionCount; c++ {
		if strings.EqualFold(c.String(), s) || (c.ContentEncoding() != "" && strings.EqualFold(c.ContentEncoding(), s)) {
			return c, nil
		}
	}
	return CompressionNone, fmt.Errorf("unknown compression: %q", s)
}

// CompressionFromFilename определяет сжатие по расширению файла.
// Неизвестное расширение означает NONE.
func CompressionFromFilename(filename string) Compression {
	ext := path.Ext(filename)
	if ext == "" {
		return CompressionNone
	}
	for c := Compression(0); c < compressionCount; c++ {
		if c.Extension() == ext {
			return c
		}
	}
	return CompressionNone
}

// CompressionSet — множество типов сжатия.
type CompressionSet uint8

// NewCompressionSet создаёт множество из перечисленных типов.
func NewCompressionSet(cs ...Compression) CompressionSet {
	var s CompressionSet
	for _, c := range cs {
		s = s.With(c)
	}
	return s
}

// AllCompressions возвращает универсальное множество.
func AllCompressions() CompressionSet {
	return CompressionSet(1<<compressionCount - 1)
}

// With возвращает множество с добавленным типом.
func (s CompressionSet) With(c Compression) CompressionSet {
	if c < 0 || c >= compressionCount {
		return s
	}
	return s | 1<<c
}

// Contains проверяет принадлежность.
func (s CompressionSet) Contains(c Compression) bool {
	if c < 0 || c >= compressionCount {
		return false
	}
	return s&(1<<c) != 0
}

// IsAll проверяет, что множество универсальное.
func (s CompressionSet) IsAll() bool {
	return s&AllCompressions() == AllCompressions()
}

// IsEmpty проверяет, что множество пустое.
func (s CompressionSet) IsEmpty() bool {
	return s&AllCompressions() == 0
}

// Slice возвращает элементы в каноническом порядке.
func (s CompressionSet) Slice() []Compression {
	result := make([]Compression, 0, compressionCount)
	for c := Compression(0); c < compressionCount; c++ {
		if s.Contains(c) {
			result = append(result, c)
		}
	}
	return result
}

// First возвращает первый элемент в каноническом порядке.
// Для пустого множества возвращает NONE и false.
func (s CompressionSet) First() (Compression, bool) {
	for c := Compression(0); c < compressionCount; c++ {
		if s.Contains(c) {
			return c, true
		}
	}
	return CompressionNone, false
}

// String возвращает элементы через запятую ("GZIP,NONE").
func (s CompressionSet) String() string {
	names := make([]string, 0, compressionCount)
	for _, c := range s.Slice() {
		names = append(names, c.String())
	}
	return strings.Join(names, ",")
}

// ParseCompressionSet парсит список через запятую. Пустая строка — универсальное множество.
func ParseCompressionSet(s string) (CompressionSet, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "ALL") {
		return AllCompressions(), nil
	}
	var set CompressionSet
	for _, part := range strings.Split(s, ",") {
		c, err := ParseCompression(part)
		if err != nil {
			return 0, err
		}
		set = set.With(c)
	}
	return set, nil
}
