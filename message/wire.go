package message

import (
	"encoding/binary"

	"github.com/opd-ai/meshwire/limits"
)

// decoder walks a byte slice front to back. Every read names the field it is
// reading so that truncation errors point at the right place.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) take(field string, n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, &FieldError{
			Field:  field,
			Offset: d.off,
			Want:   n,
			Have:   d.remaining(),
			Err:    ErrTruncatedInput,
		}
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) readU8(field string) (uint8, error) {
	b, err := d.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) readU16(field string) (uint16, error) {
	b, err := d.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *decoder) readU32(field string) (uint32, error) {
	b, err := d.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) readU64(field string) (uint64, error) {
	b, err := d.take(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// readBlock reads a 16-bit length prefix followed by that many bytes.
// The result is a copy and is never nil, even for a zero length.
func (d *decoder) readBlock(field string) ([]byte, error) {
	n, err := d.readU16(field)
	if err != nil {
		return nil, err
	}
	b, err := d.take(field, int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// rest consumes everything left. Returns nil when nothing remains.
func (d *decoder) rest() []byte {
	if d.remaining() == 0 {
		return nil
	}
	out := make([]byte, d.remaining())
	copy(out, d.buf[d.off:])
	d.off = len(d.buf)
	return out
}

func appendBlock(dst []byte, field string, block []byte) ([]byte, error) {
	if err := limits.ValidateExtensionBlock(block); err != nil {
		return nil, mismatch(field, "%v", err)
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(block)))
	return append(dst, block...), nil
}
