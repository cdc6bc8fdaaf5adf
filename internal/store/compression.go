package store

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"bqdesc-backupper/internal/errors"
)

// CompressionType is the codec applied to object-store documents
type CompressionType string

const (
	CompressionTypeNone CompressionType = "none"
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeZstd CompressionType = "zstd"
	CompressionTypeLZ4  CompressionType = "lz4"
)

// Compressor compresses whole documents
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	// Extension is appended to the object key after ".json"
	Extension() string
}

var compressors = map[CompressionType]Compressor{
	CompressionTypeNone: noneCompressor{},
	CompressionTypeGzip: gzipCompressor{},
	CompressionTypeZstd: zstdCompressor{},
	CompressionTypeLZ4:  lz4Compressor{},
}

// IsSupportedCompression reports whether t names a known codec. Empty means none.
func IsSupportedCompression(t CompressionType) bool {
	if t == "" {
		return true
	}
	_, ok := compressors[t]
	return ok
}

// GetCompressor returns the compressor for t
func GetCompressor(t CompressionType) (Compressor, error) {
	if t == "" {
		t = CompressionTypeNone
	}
	c, ok := compressors[t]
	if !ok {
		return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported compression algorithm: %s", t), nil)
	}
	return c, nil
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Extension() string                      { return "" }

type gzipCompressor struct{}

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewValidationError("failed to write data to gzip writer", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewValidationError("failed to close gzip writer", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewValidationError("failed to create gzip reader", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewValidationError("failed to decompress gzip data", err)
	}
	return out, nil
}

func (gzipCompressor) Extension() string { return ".gz" }

type zstdCompressor struct{}

func (zstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errors.NewValidationError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.NewValidationError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.NewValidationError("failed to decompress zstd data", err)
	}
	return out, nil
}

func (zstdCompressor) Extension() string { return ".zst" }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewValidationError("failed to write data to LZ4 writer", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewValidationError("failed to close LZ4 writer", err)
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.NewValidationError("failed to decompress LZ4 data", err)
	}
	return out, nil
}

func (lz4Compressor) Extension() string { return ".lz4" }
