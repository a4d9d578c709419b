package pipeline

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// EncodingGzip is the Content-Encoding of compressed objects.
const EncodingGzip = "gzip"

// Compress returns the gzip form of body.
func Compress(body []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(body) / 2)

	gz, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "gzip")
	}

	if _, err = gz.Write(body); err != nil {
		return nil, errors.Wrap(err, "gzip")
	}

	if err = gz.Close(); err != nil {
		return nil, errors.Wrap(err, "gzip close")
	}
	return buf.Bytes(), nil
}

// Decompress returns the original form of a gzip payload.
func Decompress(payload []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "gunzip")
	}
	defer gz.Close()

	body, err := io.ReadAll(gz)
	return body, errors.Wrap(err, "gunzip")
}

// ValidLevel reports whether level is a supported gzip level.
func ValidLevel(level int) bool {
	return level == gzip.DefaultCompression || level == gzip.HuffmanOnly ||
		(level >= gzip.NoCompression && level <= gzip.BestCompression)
}
