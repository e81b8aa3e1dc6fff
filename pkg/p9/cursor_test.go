package p9

import "testing"

func TestCursorPutGetRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	c := newCursor(buf)
	c.putUint8(0xab)
	c.putUint16(0x1234)
	c.putUint32(0xdeadbeef)
	c.putUint64(0x0102030405060708)
	c.putString("hello")
	c.putQid(Qid{Type: QTDIR, Version: 7, Path: 99})

	if c.overflow {
		t.Fatal("unexpected overflow while writing")
	}

	g := newCursor(buf)
	if v := g.getUint8(); v != 0xab {
		t.Fatalf("getUint8 = %#x, want 0xab", v)
	}
	if v := g.getUint16(); v != 0x1234 {
		t.Fatalf("getUint16 = %#x, want 0x1234", v)
	}
	if v := g.getUint32(); v != 0xdeadbeef {
		t.Fatalf("getUint32 = %#x, want 0xdeadbeef", v)
	}
	if v := g.getUint64(); v != 0x0102030405060708 {
		t.Fatalf("getUint64 = %#x, want 0x0102030405060708", v)
	}
	if v := g.getString(); v != "hello" {
		t.Fatalf("getString = %q, want hello", v)
	}
	if q := g.getQid(); q != (Qid{Type: QTDIR, Version: 7, Path: 99}) {
		t.Fatalf("getQid = %+v", q)
	}
}

func TestCursorStickyOverflow(t *testing.T) {
	buf := make([]byte, 4)
	c := newCursor(buf)
	c.putUint32(1)
	if c.overflow {
		t.Fatal("unexpected overflow after filling exactly")
	}
	c.putUint8(1)
	if !c.overflow {
		t.Fatal("expected overflow after writing past end")
	}
	// Once set, overflow must stick even for a zero-length write.
	c.putString("")
	if !c.overflow {
		t.Fatal("overflow flag cleared unexpectedly")
	}
}

func TestCursorGetPastEndReturnsZero(t *testing.T) {
	c := newCursor([]byte{1, 2})
	_ = c.getUint32()
	if !c.overflow {
		t.Fatal("expected overflow reading uint32 from a 2-byte buffer")
	}
	if v := c.getUint8(); v != 0 {
		t.Fatalf("getUint8 after overflow = %d, want 0", v)
	}
}
