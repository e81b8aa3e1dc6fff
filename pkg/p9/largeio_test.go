//go:build largeio

package p9

import (
	"hash/adler32"
	"testing"
)

func TestAreadBuilderAdler32(t *testing.T) {
	b := AllocRaread(2, 64, CheckAdler32)
	data := b.Data()
	copy(data, []byte("payload"))

	frame, err := b.Finalize(7)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	m, n, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(frame) {
		t.Fatalf("Decode consumed %d, want %d", n, len(frame))
	}
	ra, ok := m.(*Raread)
	if !ok {
		t.Fatalf("Decode returned %T, want *Raread", m)
	}
	if string(ra.Data) != "payload" {
		t.Fatalf("Raread.Data = %q, want payload", ra.Data)
	}
	want := adler32.Checksum([]byte("payload"))
	if ra.Check != want {
		t.Fatalf("Raread.Check = %#x, want %#x", ra.Check, want)
	}
}

func TestTawriteRoundTrip(t *testing.T) {
	m := &Tawrite{Fid: 1, Datacheck: CheckNone, Offset: 0, Count: 0, Rsize: 5, Data: []byte("hello")}
	m.SetTag(8)

	buf, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tw, ok := got.(*Tawrite)
	if !ok {
		t.Fatalf("Decode returned %T, want *Tawrite", got)
	}
	if string(tw.Data) != "hello" {
		t.Fatalf("Tawrite.Data = %q, want hello", tw.Data)
	}
}
