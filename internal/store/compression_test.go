package store

import (
	"bytes"
	"testing"
)

func TestCompressors_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"description":"orders placed on the web shop","schema":{"fields":[]}}`), 50)

	tests := []struct {
		algorithm CompressionType
		extension string
	}{
		{CompressionTypeNone, ""},
		{CompressionTypeGzip, ".gz"},
		{CompressionTypeZstd, ".zst"},
		{CompressionTypeLZ4, ".lz4"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			c, err := GetCompressor(tt.algorithm)
			if err != nil {
				t.Fatalf("GetCompressor() error = %v", err)
			}
			if c.Extension() != tt.extension {
				t.Errorf("Extension() = %q, want %q", c.Extension(), tt.extension)
			}

			compressed, err := c.Compress(data)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if tt.algorithm != CompressionTypeNone && len(compressed) >= len(data) {
				t.Errorf("Expected repetitive data to shrink, got %d >= %d", len(compressed), len(data))
			}

			decompressed, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Error("Decompressed data does not match original")
			}
		})
	}
}

func TestGetCompressor_Unsupported(t *testing.T) {
	if _, err := GetCompressor("brotli"); err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
	if IsSupportedCompression("brotli") {
		t.Error("Expected brotli to be unsupported")
	}
	if !IsSupportedCompression("") {
		t.Error("Expected empty compression to mean none")
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeZstd} {
		c, _ := GetCompressor(algorithm)
		if _, err := c.Decompress([]byte("definitely not compressed")); err == nil {
			t.Errorf("%s: expected error for corrupt input", algorithm)
		}
	}
}
