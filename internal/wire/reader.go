// Package wire implements a byte-slice cursor with the typed readers that
// PostgreSQL wire protocol v3 packet parsing needs: fixed-width big-endian
// integers, length-prefixed sequences, null-terminated strings and maps, and
// raw byte spans, each with a strict "no trailing data" finalize check.
//
// Ported 1:1 from original_source/src/wire_reader.rs: same method set, same
// error strings, same "advance past what was consumed even on error" cursor
// semantics, adapted to Go's (value, error) idiom in place of Rust's Result.
package wire

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var (
	ErrInsufficientData      = errors.New("insufficient data in wire packet to parse a required field")
	ErrOversizedPacket       = errors.New("invalid packet length--unrecognized data at end of packet")
	ErrMissingNullTerminator = errors.New("null terminator missing for a required field in the wire packet")
	ErrUTF8Encoding          = errors.New("invalid UTF-8 characters detected in field")
	ErrUniqueKey             = errors.New("duplicate value found in field that requires unique values")
	ErrNegativeLength        = errors.New("wire packet contained length field with invalid negative value")
)

// Reader is a forward-only cursor over a byte slice.
type Reader struct {
	bytes []byte
}

// NewReader wraps wire in a Reader. The slice is not copied; callers must
// not mutate it while the Reader is in use.
func NewReader(wire []byte) *Reader {
	return &Reader{bytes: wire}
}

// Empty reports whether the reader has no bytes left.
func (r *Reader) Empty() bool {
	return len(r.bytes) == 0
}

// Remaining returns the count of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.bytes)
}

func (r *Reader) ReadByte() (byte, error) {
	if len(r.bytes) == 0 {
		return 0, ErrInsufficientData
	}
	b := r.bytes[0]
	r.bytes = r.bytes[1:]
	return b, nil
}

func (r *Reader) ReadUTF8CStr() (string, error) {
	idx := bytes.IndexByte(r.bytes, 0)
	if idx < 0 {
		return "", ErrMissingNullTerminator
	}
	str := r.bytes[:idx]
	r.bytes = r.bytes[idx+1:]
	if !utf8.Valid(str) {
		return "", ErrUTF8Encoding
	}
	return string(str), nil
}

func (r *Reader) ReadUTF8CStrAndFinalize() (string, error) {
	s, err := r.ReadUTF8CStr()
	if ferr := r.Finalize(); ferr != nil {
		return s, ferr
	}
	return s, err
}

func (r *Reader) ReadUTF8CStrs(count int) ([]string, error) {
	strs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := r.ReadUTF8CStr()
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}

func (r *Reader) ReadUTF8CStrsAndFinalize(count int) ([]string, error) {
	s, err := r.ReadUTF8CStrs(count)
	if ferr := r.Finalize(); ferr != nil {
		return s, ferr
	}
	return s, err
}

// ReadUTF8CStrsTerm reads zero-terminated C strings until it finds a
// trailing zero byte, which it consumes as the list terminator.
func (r *Reader) ReadUTF8CStrsTerm() ([]string, error) {
	var strs []string
	for !r.Empty() && r.bytes[0] != 0 {
		s, err := r.ReadUTF8CStr()
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	if r.Empty() || r.bytes[0] != 0 {
		return nil, ErrMissingNullTerminator
	}
	r.bytes = r.bytes[1:]
	return strs, nil
}

func (r *Reader) ReadTermUTF8CStrsAndFinalize() ([]string, error) {
	s, err := r.ReadUTF8CStrsTerm()
	if ferr := r.Finalize(); ferr != nil {
		return s, ferr
	}
	return s, err
}

// ReadUTF8StringStringMap reads key/value C-string pairs until a trailing
// zero byte, failing if a key repeats.
func (r *Reader) ReadUTF8StringStringMap() (map[string]string, error) {
	m := make(map[string]string)
	for !r.Empty() && r.bytes[0] != 0 {
		key, err := r.ReadUTF8CStr()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadUTF8CStr()
		if err != nil {
			return nil, err
		}
		if _, exists := m[key]; exists {
			return nil, ErrUniqueKey
		}
		m[key] = value
	}
	if r.Empty() || r.bytes[0] != 0 {
		return nil, ErrMissingNullTerminator
	}
	r.bytes = r.bytes[1:]
	return m, nil
}

// ReadTermUTF8ByteStringMap reads byte-key/C-string-value pairs until a
// trailing zero byte, failing if a key repeats.
func (r *Reader) ReadTermUTF8ByteStringMap() (map[byte]string, error) {
	m := make(map[byte]string)
	for !r.Empty() && r.bytes[0] != 0 {
		key, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadUTF8CStr()
		if err != nil {
			return nil, err
		}
		if _, exists := m[key]; exists {
			return nil, ErrUniqueKey
		}
		m[key] = value
	}
	if r.Empty() || r.bytes[0] != 0 {
		return nil, ErrMissingNullTerminator
	}
	r.bytes = r.bytes[1:]
	return m, nil
}

func (r *Reader) ReadTermUTF8ByteStringMapAndFinalize() (map[byte]string, error) {
	m, err := r.ReadTermUTF8ByteStringMap()
	if ferr := r.Finalize(); ferr != nil {
		return m, ferr
	}
	return m, err
}

func (r *Reader) ReadInt32() (int32, error) {
	b, ok := trySplitAt(r.bytes, 4)
	if !ok {
		return 0, ErrInsufficientData
	}
	r.bytes = r.bytes[4:]
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])), nil
}

func (r *Reader) ReadInt32AndFinalize() (int32, error) {
	v, err := r.ReadInt32()
	if ferr := r.Finalize(); ferr != nil {
		return v, ferr
	}
	return v, err
}

func (r *Reader) ReadInt16() (int16, error) {
	b, ok := trySplitAt(r.bytes, 2)
	if !ok {
		return 0, ErrInsufficientData
	}
	r.bytes = r.bytes[2:]
	return int16(uint16(b[0])<<8 | uint16(b[1])), nil
}

func (r *Reader) ReadInt16AndFinalize() (int16, error) {
	v, err := r.ReadInt16()
	if ferr := r.Finalize(); ferr != nil {
		return v, ferr
	}
	return v, err
}

func (r *Reader) ReadInt32Length() (int, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrNegativeLength
	}
	return int(v), nil
}

func (r *Reader) ReadInt16Length() (int, error) {
	v, err := r.ReadInt16()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrNegativeLength
	}
	return int(v), nil
}

// ReadNullableInt32Length reads a length that may be -1 to mean "null".
func (r *Reader) ReadNullableInt32Length() (int, bool, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, false, err
	}
	if v == -1 {
		return 0, true, nil
	}
	if v < 0 {
		return 0, false, ErrNegativeLength
	}
	return int(v), false, nil
}

func (r *Reader) ReadInt32List(length int) ([]int32, error) {
	list := make([]int32, 0, length)
	for i := 0; i < length; i++ {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

func (r *Reader) ReadInt32ListAndFinalize(length int) ([]int32, error) {
	v, err := r.ReadInt32List(length)
	if ferr := r.Finalize(); ferr != nil {
		return v, ferr
	}
	return v, err
}

func (r *Reader) ReadBytes(count int) ([]byte, error) {
	b, ok := trySplitAt(r.bytes, count)
	if !ok {
		return nil, ErrInsufficientData
	}
	r.bytes = r.bytes[count:]
	return b, nil
}

func (r *Reader) ReadBytesAndFinalize(count int) ([]byte, error) {
	v, err := r.ReadBytes(count)
	if ferr := r.Finalize(); ferr != nil {
		return v, ferr
	}
	return v, err
}

func (r *Reader) ReadRemainingBytes() []byte {
	remaining := r.bytes
	r.bytes = nil
	return remaining
}

func (r *Reader) Read4Bytes() ([4]byte, error) {
	var out [4]byte
	b, ok := trySplitAt(r.bytes, 4)
	if !ok {
		return out, ErrInsufficientData
	}
	copy(out[:], b)
	r.bytes = r.bytes[4:]
	return out, nil
}

func (r *Reader) Read4BytesAndFinalize() ([4]byte, error) {
	v, err := r.Read4Bytes()
	if ferr := r.Finalize(); ferr != nil {
		return v, ferr
	}
	return v, err
}

// AdvanceUpTo advances the cursor by up to numBytes. If fewer than numBytes
// remain, it advances to the end.
func (r *Reader) AdvanceUpTo(numBytes int) {
	if numBytes >= len(r.bytes) {
		r.bytes = nil
		return
	}
	r.bytes = r.bytes[numBytes:]
}

// Finalize fails with ErrOversizedPacket if any bytes remain unread.
func (r *Reader) Finalize() error {
	if len(r.bytes) > 0 {
		r.bytes = nil
		return ErrOversizedPacket
	}
	return nil
}

func trySplitAt(b []byte, n int) ([]byte, bool) {
	if len(b) < n {
		return nil, false
	}
	return b[:n], true
}
