// Package wire implements the primitive codec layer of the state codec:
// fixed-width big-endian integers, a one-byte bool, and 16-bit
// length-prefixed byte arrays, built around a cursor that advances
// monotonically over a byte slice.
//
// The shape is modeled on the teacher's encoding/pam/fieldio byteBuffer
// (a position-tracking wrapper around a []byte used for either reading or
// writing, never both), generalized to big-endian per the wire-format
// contract and made error-returning instead of panicking, since every
// primitive here can legitimately fail at the edge of a truncated blob.
package wire

import (
	"encoding/binary"

	"github.com/swtpm-project/statecodec/errs"
)

// Writer accumulates a big-endian byte stream. It never fails on Write*
// calls (append always succeeds); the error returns exist so call sites
// can propagate errors uniformly with Reader and nested Marshal calls.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer, optionally seeded with a capacity
// hint.
func NewWriter(capHint int) *Writer {
	return &Writer{buf: make([]byte, 0, capHint)}
}

// Bytes returns the accumulated stream.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far; used by the skip-block
// mechanism to remember a fixup position.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) WriteU8(v uint8) error {
	w.buf = append(w.buf, v)
	return nil
}

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

func (w *Writer) WriteU16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return nil
}

func (w *Writer) WriteU32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return nil
}

func (w *Writer) WriteU64(v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return nil
}

// WriteRaw appends bytes with no length prefix; used for fixed-size
// arrays whose size is implied by a separately-written count.
func (w *Writer) WriteRaw(b []byte) error {
	w.buf = append(w.buf, b...)
	return nil
}

// WriteArray writes a 16-bit length followed by the bytes, the
// "length-prefixed array" primitive from spec §4.1/§6.
func (w *Writer) WriteArray(b []byte) error {
	if err := w.WriteU16(uint16(len(b))); err != nil {
		return err
	}
	return w.WriteRaw(b)
}

// PatchU16 overwrites the 2 bytes at offset with v. Used by the
// skip-block writer to back-patch a previously-reserved length field.
func (w *Writer) PatchU16(offset int, v uint16) error {
	if offset < 0 || offset+2 > len(w.buf) {
		return errs.New(errs.Insufficient, "wire: PatchU16 offset %d out of range (len=%d)", offset, len(w.buf))
	}
	binary.BigEndian.PutUint16(w.buf[offset:offset+2], v)
	return nil
}

// Reader walks a byte slice forward, never rewinding, tracking the
// declared "remaining size" the way the C implementation's INT32 *size
// does.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reading.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Pos returns the current read offset, for diagnostics.
func (r *Reader) Pos() int { return r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return errs.New(errs.Insufficient, "wire: need %d bytes, have %d", n, r.Remaining())
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadRaw reads exactly n unprefixed bytes, for fixed-size arrays whose
// count was read separately.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.New(errs.Size, "wire: negative length %d", n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

// ReadArray reads a 16-bit length followed by that many bytes.
func (r *Reader) ReadArray() ([]byte, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return r.ReadRaw(int(n))
}

// Skip advances the cursor by n bytes without copying them out, used by
// the skip-block mechanism when a region is present but not needed.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}
