// Package utils holds the value codec shared by the cache stores.
package utils

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// CompressValue gzips a cache value and base64-encodes it so it stays a
// plain string in a bolt JSON record or a redis key. key only labels errors.
func CompressValue(key, value string) (string, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to compress %s: %w", key, err)
	}
	if _, err := io.WriteString(zw, value); err != nil {
		return "", fmt.Errorf("failed to compress %s: %w", key, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress %s: %w", key, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecompressValue reverses CompressValue.
func DecompressValue(key, stored string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	defer zr.Close()

	value, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	return string(value), nil
}
