package wire

import (
	"errors"
	"testing"
)

func TestReadInt32(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x00, 0x00, 0x01, 0x2c})
	v, err := r.ReadInt32()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 300 {
		t.Errorf("got %d, want 300", v)
	}
	if !r.Empty() {
		t.Error("expected reader to be drained")
	}
}

func TestReadInt32InsufficientData(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x00, 0x01})
	if _, err := r.ReadInt32(); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}

func TestReadUTF8CStr(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte("hello\x00world\x00"))
	s, err := r.ReadUTF8CStr()
	if err != nil || s != "hello" {
		t.Fatalf("got %q, %v, want hello, nil", s, err)
	}
	s2, err := r.ReadUTF8CStr()
	if err != nil || s2 != "world" {
		t.Fatalf("got %q, %v, want world, nil", s2, err)
	}
}

func TestReadUTF8CStrMissingTerminator(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte("hello"))
	if _, err := r.ReadUTF8CStr(); !errors.Is(err, ErrMissingNullTerminator) {
		t.Fatalf("got %v, want ErrMissingNullTerminator", err)
	}
}

func TestReadUTF8CStrInvalidUTF8(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xff, 0xfe, 0x00})
	if _, err := r.ReadUTF8CStr(); !errors.Is(err, ErrUTF8Encoding) {
		t.Fatalf("got %v, want ErrUTF8Encoding", err)
	}
}

func TestReadUTF8StringStringMap(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte("user\x00alice\x00database\x00prod\x00\x00"))
	m, err := r.ReadUTF8StringStringMap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["user"] != "alice" || m["database"] != "prod" {
		t.Fatalf("got %v", m)
	}
}

func TestReadUTF8StringStringMapDuplicateKey(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte("user\x00alice\x00user\x00bob\x00\x00"))
	if _, err := r.ReadUTF8StringStringMap(); !errors.Is(err, ErrUniqueKey) {
		t.Fatalf("got %v, want ErrUniqueKey", err)
	}
}

func TestReadNullableInt32Length(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xff, 0xff, 0xff, 0xff})
	length, isNull, err := r.ReadNullableInt32Length()
	if err != nil || !isNull || length != 0 {
		t.Fatalf("got %d, %v, %v, want 0, true, nil", length, isNull, err)
	}
}

func TestReadNullableInt32LengthNegativeNonMinusOne(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xff, 0xff, 0xff, 0xfe}) // -2
	if _, _, err := r.ReadNullableInt32Length(); !errors.Is(err, ErrNegativeLength) {
		t.Fatalf("got %v, want ErrNegativeLength", err)
	}
}

func TestFinalizeOversizedPacket(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x00, 0x00, 0x01, 0x2c, 0x99})
	if _, err := r.ReadInt32AndFinalize(); !errors.Is(err, ErrOversizedPacket) {
		t.Fatalf("got %v, want ErrOversizedPacket", err)
	}
}

func TestFinalizeExactConsumption(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x00, 0x00, 0x01, 0x2c})
	if _, err := r.ReadInt32AndFinalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadBytes(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{1, 2, 3, 4, 5})
	b, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != string([]byte{1, 2, 3}) {
		t.Errorf("got %v", b)
	}
	if r.Remaining() != 2 {
		t.Errorf("remaining = %d, want 2", r.Remaining())
	}
}

func TestAdvanceUpToBeyondEnd(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{1, 2, 3})
	r.AdvanceUpTo(10)
	if !r.Empty() {
		t.Error("expected reader to be empty after advancing past its end")
	}
}
