// Package xzstream decodes xz streams packed back-to-back in a byte buffer
// with no enclosing length fields, reporting how much input each stream
// consumed so callers can walk from one stream to the next.
package xzstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/ulikunitz/xz"
)

// Magic is the xz stream header magic.
var Magic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// HeaderLen provides the length of the xz file header.
const HeaderLen = 12

// ErrCorruptStream means a stream header was malformed or decoding failed
// mid-stream.
var ErrCorruptStream = errors.New("corrupt stream")

// Stream is one decoded xz stream.
type Stream struct {
	Data     []byte // decompressed bytes
	Offset   int    // where the stream started in the input buffer
	Consumed int    // compressed bytes the stream occupied
}

// DecompressOne decodes the single xz stream starting at off. Whatever
// follows the stream's end, another stream, padding or unrelated trailing
// bytes, is left untouched, so callers can walk packed streams by the
// returned consumed length.
func DecompressOne(buf []byte, off int) ([]byte, int, error) {
	if off < 0 || len(buf)-off < HeaderLen {
		return nil, 0, fmt.Errorf("%w: %d bytes left at offset %#x is too short for a stream header", ErrCorruptStream, len(buf)-off, off)
	}
	if !bytes.HasPrefix(buf[off:], Magic) {
		return nil, 0, fmt.Errorf("%w: no xz magic at offset %#x", ErrCorruptStream, off)
	}
	data, n, err := decode(buf[off:])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	return data, n, nil
}

// decode reads one stream from the head of b and reports the compressed
// bytes it occupied. The single-stream xz reader surfaces the same error
// for a corrupt stream and for trailing bytes after a complete one, and
// it consumes exactly one byte past a finished stream before reporting
// the latter; re-decoding the measured extent tells the two cases apart.
func decode(b []byte) ([]byte, int, error) {
	cr := &countReader{r: bytes.NewReader(b)}
	xr, err := xz.ReaderConfig{SingleStream: true}.NewReader(cr)
	if err != nil {
		return nil, 0, err
	}
	data, err := io.ReadAll(xr)
	if err == nil {
		return data, cr.n, nil
	}
	if n := cr.n - 1; n >= HeaderLen {
		if _, err2 := decodeExact(b[:n]); err2 == nil {
			return data, n, nil
		}
	}
	return nil, 0, err
}

func decodeExact(b []byte) ([]byte, error) {
	xr, err := xz.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(xr)
}

type countReader struct {
	r io.Reader
	n int
}

func (c *countReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// Decoder lazily walks concatenated xz streams so a caller only interested
// in the first N streams need not decompress the rest.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a Decoder positioned at off.
func NewDecoder(buf []byte, off int) *Decoder {
	return &Decoder{buf: buf, off: off}
}

// Next decodes the next stream. It returns io.EOF once the remaining buffer
// is shorter than the minimum valid stream header.
func (d *Decoder) Next() (*Stream, error) {
	if len(d.buf)-d.off < HeaderLen {
		return nil, io.EOF
	}
	data, consumed, err := DecompressOne(d.buf, d.off)
	if err != nil {
		return nil, err
	}
	s := &Stream{Data: data, Offset: d.off, Consumed: consumed}
	d.off += consumed
	return s, nil
}

// DecompressAll drains a Decoder starting at off. A failure on the first
// stream is fatal; a failure on a later stream terminates the walk but
// returns the streams already recovered, since legacy containers pack an
// undeclared number of streams back-to-back and truncation is common in
// the wild.
func DecompressAll(buf []byte, off int) ([]*Stream, error) {
	dec := NewDecoder(buf, off)
	var streams []*Stream
	for {
		s, err := dec.Next()
		if err == io.EOF {
			return streams, nil
		}
		if err != nil {
			if len(streams) == 0 {
				return nil, err
			}
			log.WithError(err).Debugf("xzstream: stopping after %d stream(s)", len(streams))
			return streams, nil
		}
		streams = append(streams, s)
	}
}
