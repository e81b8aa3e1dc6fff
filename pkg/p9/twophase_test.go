package p9

import "testing"

func TestRreadBuilderTruncatedFill(t *testing.T) {
	b := AllocRread(3, 4096)
	data := b.Data()
	if len(data) != 4096 {
		t.Fatalf("Data() len = %d, want 4096", len(data))
	}
	copy(data, []byte("abcdefg"))

	frame, err := b.Finalize(7)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(frame) != 18 {
		t.Fatalf("finalized frame size = %d, want 18", len(frame))
	}

	m, n, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(frame) {
		t.Fatalf("Decode consumed %d, want %d", n, len(frame))
	}
	rr, ok := m.(*Rread)
	if !ok {
		t.Fatalf("Decode returned %T, want *Rread", m)
	}
	if string(rr.Data) != "abcdefg" {
		t.Fatalf("Rread.Data = %q, want abcdefg", rr.Data)
	}
	if rr.GetTag() != 3 {
		t.Fatalf("Rread.Tag = %v, want 3", rr.GetTag())
	}
}

func TestRreadBuilderFinalizeOutOfRange(t *testing.T) {
	b := AllocRread(1, 16)
	if _, err := b.Finalize(17); err == nil {
		t.Fatal("Finalize(17) on a 16-byte reservation succeeded, want error")
	}
	if _, err := b.Finalize(-1); err == nil {
		t.Fatal("Finalize(-1) succeeded, want error")
	}
}

func TestRreaddirBuilderRoundTrip(t *testing.T) {
	b := CreateRreaddir(4, 256)
	data := b.Data()

	n1 := SerializeDirent(Qid{Path: 1}, 1, 4, ".", data)
	n2 := SerializeDirent(Qid{Path: 2}, 2, 4, "..", data[n1:])

	frame, err := b.Finalize(n1 + n2)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	m, _, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rd, ok := m.(*Rreaddir)
	if !ok {
		t.Fatalf("Decode returned %T, want *Rreaddir", m)
	}
	ents, err := DecodeDirents(rd.Data)
	if err != nil {
		t.Fatalf("DecodeDirents: %v", err)
	}
	if len(ents) != 2 || ents[0].Name != "." || ents[1].Name != ".." {
		t.Fatalf("ents = %+v", ents)
	}
}
