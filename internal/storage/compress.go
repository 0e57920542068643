package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"

	"github.com/shaiso/Seqflow/internal/domain"
)

// NewReader оборачивает r декомпрессором.
func NewReader(r io.Reader, c domain.Compression) (io.ReadCloser, error) {
	switch c {
	case domain.CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case domain.CompressionBzip2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, err
		}
		return br, nil
	case domain.CompressionNone:
		return io.NopCloser(r), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
}

// NewWriter оборачивает w компрессором. Close компрессора не закрывает w.
func NewWriter(w io.Writer, c domain.Compression) (io.WriteCloser, error) {
	switch c {
	case domain.CompressionGzip:
		return gzip.NewWriter(w), nil
	case domain.CompressionBzip2:
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, err
		}
		return bw, nil
	case domain.CompressionNone:
		return nopWriteCloser{w}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// CopyData копирует src в dst, меняя сжатие.
// Сжатие src определяется по расширению, сжатие dst задаётся явно.
// Возвращает число байт несжатых данных.
func CopyData(ctx context.Context, reg *Registry, src, dst string, dstCompression domain.Compression) (int64, error) {
	in, err := reg.Open(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	reader, err := NewReader(in, domain.CompressionFromFilename(src))
	if err != nil {
		return 0, fmt.Errorf("decompress %s: %w", src, err)
	}
	defer reader.Close()

	out, err := reg.Create(ctx, dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	writer, err := NewWriter(out, dstCompression)
	if err != nil {
		out.Close()
		return 0, fmt.Errorf("compress %s: %w", dst, err)
	}

	n, err := io.Copy(writer, reader)
	if err != nil {
		writer.Close()
		out.Close()
		return n, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := writer.Close(); err != nil {
		out.Close()
		return n, fmt.Errorf("finish %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", dst, err)
	}
	return n, nil
}

// ReplaceExtension заменяет расширение сжатия в имени файла.
func ReplaceExtension(location string, c domain.Compression) string {
	current := domain.CompressionFromFilename(location)
	base := location[:len(location)-len(current.Extension())]
	return base + c.Extension()
}
