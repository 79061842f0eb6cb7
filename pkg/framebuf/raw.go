package framebuf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec compresses raw frame dumps.
type Codec int

const (
	CodecNone Codec = iota
	CodecZstd
	CodecSnappy
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecSnappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Ext returns the file extension used for the codec.
func (c Codec) Ext() string {
	switch c {
	case CodecZstd:
		return ".sdfr.zst"
	case CodecSnappy:
		return ".sdfr.sz"
	default:
		return ".sdfr"
	}
}

// CodecFromPath picks the codec from a file name.
func CodecFromPath(path string) Codec {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".zst"):
		return CodecZstd
	case strings.HasSuffix(name, ".sz"):
		return CodecSnappy
	default:
		return CodecNone
	}
}

// ErrBadRaw is returned when a raw dump has the wrong magic or shape.
var ErrBadRaw = errors.New("framebuf: malformed raw frame")

var rawMagic = [4]byte{'S', 'D', 'F', 'R'}

const (
	rawVersion    = 1
	rawHeaderSize = 16
	maxRawPixels  = 1 << 28
)

// Raw layout, little endian:
//
//	magic [4]byte | version uint32 | width uint32 | height uint32
//	color [3*w*h]float64 | depth [w*h]float64 | steps [w*h]float64 | trap [w*h]float64

// WriteRaw dumps every channel of f through codec.
func WriteRaw(w io.Writer, f *Frame, codec Codec) error {
	var (
		sink   io.Writer
		finish func() error
	)
	switch codec {
	case CodecNone:
		bw := bufio.NewWriter(w)
		sink, finish = bw, bw.Flush
	case CodecZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("framebuf: zstd writer: %w", err)
		}
		sink, finish = enc, enc.Close
	case CodecSnappy:
		sw := snappy.NewBufferedWriter(w)
		sink, finish = sw, sw.Close
	default:
		return fmt.Errorf("framebuf: unknown codec %d", int(codec))
	}

	if err := writeRawBody(sink, f); err != nil {
		finish()
		return fmt.Errorf("framebuf: write raw (%s): %w", codec, err)
	}
	if err := finish(); err != nil {
		return fmt.Errorf("framebuf: flush raw (%s): %w", codec, err)
	}
	return nil
}

func writeRawBody(w io.Writer, f *Frame) error {
	var header [rawHeaderSize]byte
	copy(header[0:4], rawMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], rawVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(f.Width))
	binary.LittleEndian.PutUint32(header[12:16], uint32(f.Height))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	var buf [8]byte
	for _, ch := range [][]float64{f.Color, f.Depth, f.Steps, f.Trap} {
		for _, v := range ch {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadRaw loads a frame written by WriteRaw.
func ReadRaw(r io.Reader, codec Codec) (*Frame, error) {
	var src io.Reader
	switch codec {
	case CodecNone:
		src = bufio.NewReader(r)
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("framebuf: zstd reader: %w", err)
		}
		defer dec.Close()
		src = dec
	case CodecSnappy:
		src = snappy.NewReader(r)
	default:
		return nil, fmt.Errorf("framebuf: unknown codec %d", int(codec))
	}

	var header [rawHeaderSize]byte
	if _, err := io.ReadFull(src, header[:]); err != nil {
		return nil, fmt.Errorf("framebuf: read raw header: %w", err)
	}
	if [4]byte(header[0:4]) != rawMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadRaw, header[0:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != rawVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadRaw, v)
	}
	w := int(binary.LittleEndian.Uint32(header[8:12]))
	h := int(binary.LittleEndian.Uint32(header[12:16]))
	if w <= 0 || h <= 0 || w*h > maxRawPixels {
		return nil, fmt.Errorf("%w: size %dx%d", ErrBadRaw, w, h)
	}

	f, err := New(w, h)
	if err != nil {
		return nil, err
	}
	var buf [8]byte
	for _, ch := range [][]float64{f.Color, f.Depth, f.Steps, f.Trap} {
		for i := range ch {
			if _, err := io.ReadFull(src, buf[:]); err != nil {
				return nil, fmt.Errorf("framebuf: read raw body: %w", err)
			}
			ch[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
		}
	}
	return f, nil
}
