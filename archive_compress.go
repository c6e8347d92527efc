package zipstream

import (
	"bytes"
	"hash/crc32"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Compressor is the interface used to raw-deflate entry payloads.
type Compressor interface {
	// Compress data, the options are passed as-is from
	// Options.CompressorOptions and may be nil.
	Compress(data []byte, options interface{}) ([]byte, error)
}

// CompressorFunc implements the Compressor interface.
type CompressorFunc func([]byte, interface{}) ([]byte, error)

// Compress implementation.
func (f CompressorFunc) Compress(b []byte, options interface{}) ([]byte, error) {
	return f(b, options)
}

// FlateOptions are the options recognized by FlateCompressor.
type FlateOptions struct {
	// Level is the flate compression level, zero
	// meaning flate.DefaultCompression.
	Level int
}

// FlateCompressor compresses with klauspost/compress/flate. Options
// other than FlateOptions are ignored.
var FlateCompressor = CompressorFunc(func(b []byte, options interface{}) ([]byte, error) {
	level := flate.DefaultCompression

	switch o := options.(type) {
	case FlateOptions:
		if o.Level != 0 {
			level = o.Level
		}
	case *FlateOptions:
		if o != nil && o.Level != 0 {
			level = o.Level
		}
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating flate writer")
	}

	if _, err := w.Write(b); err != nil {
		return nil, errors.Wrap(err, "deflating")
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing flate writer")
	}

	return buf.Bytes(), nil
})

// checksum returns the IEEE CRC-32 of b.
func checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
