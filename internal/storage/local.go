package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalProtocol — протокол локальной файловой системы.
type LocalProtocol struct{}

// NewLocalProtocol создаёт протокол file.
func NewLocalProtocol() *LocalProtocol {
	return &LocalProtocol{}
}

// Name возвращает "file".
func (p *LocalProtocol) Name() string {
	return SchemeFile
}

// LocalPath переводит location в путь файловой системы.
func LocalPath(location string) (string, error) {
	if Scheme(location) != SchemeFile {
		return "", fmt.Errorf("%w: %s is not a local location", ErrInvalidLocation, location)
	}
	return filepath.FromSlash(strings.TrimPrefix(location, "file://")), nil
}

// Exists проверяет существование файла или каталога.
func (p *LocalProtocol) Exists(_ context.Context, location string) (bool, error) {
	path, err := LocalPath(location)
	if err != nil {
		return false, err
	}

	_, err = os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Open открывает файл на чтение.
func (p *LocalProtocol) Open(_ context.Context, location string) (io.ReadCloser, error) {
	path, err := LocalPath(location)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Create создаёт файл, при необходимости создавая родительский каталог.
func (p *LocalProtocol) Create(_ context.Context, location string) (io.WriteCloser, error) {
	path, err := LocalPath(location)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", path, err)
	}
	return os.Create(path)
}

// MkdirAll создаёт каталог.
func (p *LocalProtocol) MkdirAll(_ context.Context, location string) error {
	path, err := LocalPath(location)
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

// Symlink создаёт символическую ссылку. target может быть относительным.
// Существующая ссылка заменяется.
func (p *LocalProtocol) Symlink(_ context.Context, target, link string) error {
	linkPath, err := LocalPath(link)
	if err != nil {
		return err
	}
	targetPath := target
	if Scheme(target) == SchemeFile {
		targetPath = strings.TrimPrefix(target, "file://")
	}

	if err := os.Remove(linkPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old link %s: %w", linkPath, err)
	}
	return os.Symlink(targetPath, linkPath)
}

// Remove удаляет файл или каталог рекурсивно.
func (p *LocalProtocol) Remove(_ context.Context, location string) error {
	path, err := LocalPath(location)
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}
