package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

var (
	// ErrUnknownProtocol — нет протокола для схемы location.
	ErrUnknownProtocol = errors.New("unknown storage protocol")

	// ErrSymlinkUnsupported — протокол не поддерживает символические ссылки.
	ErrSymlinkUnsupported = errors.New("symlink not supported by protocol")

	// ErrUnsupportedCompression — кодек для сжатия недоступен.
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// ErrInvalidLocation — location не удалось разобрать.
	ErrInvalidLocation = errors.New("invalid location")
)

// SchemeFile — схема локальной файловой системы.
const SchemeFile = "file"

// Protocol — протокол доступа к данным.
type Protocol interface {
	// Name возвращает схему протокола ("file", "s3").
	Name() string

	// Exists проверяет существование location.
	Exists(ctx context.Context, location string) (bool, error)

	// Open открывает location на чтение.
	Open(ctx context.Context, location string) (io.ReadCloser, error)

	// Create создаёт (перезаписывает) location. Данные гарантированно
	// записаны только после успешного Close.
	Create(ctx context.Context, location string) (io.WriteCloser, error)

	// MkdirAll создаёт каталог со всеми родителями.
	MkdirAll(ctx context.Context, location string) error

	// Symlink создаёт ссылку link, указывающую на target.
	Symlink(ctx context.Context, target, link string) error

	// Remove удаляет location. Отсутствие location не является ошибкой.
	Remove(ctx context.Context, location string) error
}

// Scheme возвращает схему location. Location без схемы — локальный путь.
func Scheme(location string) string {
	if i := strings.Index(location, "://"); i > 0 {
		return strings.ToLower(location[:i])
	}
	return SchemeFile
}

// Join присоединяет элементы пути к location, сохраняя схему.
func Join(location string, elem ...string) string {
	scheme, rest := splitScheme(location)
	joined := path.Join(append([]string{rest}, elem...)...)
	if scheme == "" {
		return joined
	}
	return scheme + "://" + joined
}

// Dir возвращает родительский location.
func Dir(location string) string {
	scheme, rest := splitScheme(location)
	dir := path.Dir(rest)
	if scheme == "" {
		return dir
	}
	return scheme + "://" + dir
}

// Base возвращает последний элемент location.
func Base(location string) string {
	_, rest := splitScheme(location)
	return path.Base(rest)
}

func splitScheme(location string) (string, string) {
	if i := strings.Index(location, "://"); i > 0 {
		return location[:i], location[i+3:]
	}
	return "", location
}

// Registry — набор протоколов по схемам.
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]Protocol
}

// NewRegistry создаёт реестр с указанными протоколами.
func NewRegistry(protocols ...Protocol) *Registry {
	r := &Registry{
		protocols: make(map[string]Protocol),
	}
	for _, p := range protocols {
		r.Register(p)
	}
	return r
}

// Register регистрирует протокол. Повторная регистрация заменяет прежний.
func (r *Registry) Register(p Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocols[p.Name()] = p
}

// For возвращает протокол для location.
func (r *Registry) For(location string) (Protocol, error) {
	scheme := Scheme(location)

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.protocols[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, scheme)
	}
	return p, nil
}

// Exists проверяет существование location.
func (r *Registry) Exists(ctx context.Context, location string) (bool, error) {
	p, err := r.For(location)
	if err != nil {
		return false, err
	}
	return p.Exists(ctx, location)
}

// Open открывает location на чтение.
func (r *Registry) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	p, err := r.For(location)
	if err != nil {
		return nil, err
	}
	return p.Open(ctx, location)
}

// Create создаёт location.
func (r *Registry) Create(ctx context.Context, location string) (io.WriteCloser, error) {
	p, err := r.For(location)
	if err != nil {
		return nil, err
	}
	return p.Create(ctx, location)
}

// MkdirAll создаёт каталог.
func (r *Registry) MkdirAll(ctx context.Context, location string) error {
	p, err := r.For(location)
	if err != nil {
		return err
	}
	return p.MkdirAll(ctx, location)
}

// Symlink создаёт ссылку. Протокол определяется по link.
func (r *Registry) Symlink(ctx context.Context, target, link string) error {
	p, err := r.For(link)
	if err != nil {
		return err
	}
	return p.Symlink(ctx, target, link)
}

// Remove удаляет location.
func (r *Registry) Remove(ctx context.Context, location string) error {
	p, err := r.For(location)
	if err != nil {
		return err
	}
	return p.Remove(ctx, location)
}

// ReadFile читает location целиком.
func (r *Registry) ReadFile(ctx context.Context, location string) ([]byte, error) {
	rc, err := r.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WriteFile записывает данные в location.
func (r *Registry) WriteFile(ctx context.Context, location string, data []byte) error {
	wc, err := r.Create(ctx, location)
	if err != nil {
		return err
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("write %s: %w", location, err)
	}
	return wc.Close()
}
