package p9

import "testing"

func TestDirentPacking(t *testing.T) {
	buf := make([]byte, 64)

	n1 := SerializeDirent(Qid{Path: 1}, 1, 4, ".", buf)
	if n1 == 0 {
		t.Fatal("SerializeDirent(.) failed to fit")
	}
	n2 := SerializeDirent(Qid{Path: 2}, 2, 4, "..", buf[n1:])
	if n2 == 0 {
		t.Fatal("SerializeDirent(..) failed to fit")
	}

	// Fixed per-entry overhead (qid + offset + type + u16 name-len prefix)
	// is 13+8+1+2 = 24 bytes, per np_serialize_p9dirent's own size
	// arithmetic; each entry then adds its own name's byte length.
	if want := 13 + 8 + 1 + 2 + len("."); n1 != want {
		t.Fatalf("dirent(.) size = %d, want %d", n1, want)
	}
	if want := 13 + 8 + 1 + 2 + len(".."); n2 != want {
		t.Fatalf("dirent(..) size = %d, want %d", n2, want)
	}
	// second dirent begins right after the first.
	if n1 != 25 {
		t.Fatalf("second dirent offset = %d, want 25", n1)
	}

	ents, err := DecodeDirents(buf[:n1+n2])
	if err != nil {
		t.Fatalf("DecodeDirents: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("DecodeDirents returned %d entries, want 2", len(ents))
	}
	if ents[0].Name != "." || ents[0].Offset != 1 || ents[0].Qid.Path != 1 {
		t.Fatalf("ents[0] = %+v", ents[0])
	}
	if ents[1].Name != ".." || ents[1].Offset != 2 || ents[1].Qid.Path != 2 {
		t.Fatalf("ents[1] = %+v", ents[1])
	}
}

func TestSerializeDirentTooSmall(t *testing.T) {
	buf := make([]byte, 4)
	if n := SerializeDirent(Qid{}, 0, 0, "toolong", buf); n != 0 {
		t.Fatalf("SerializeDirent into undersized buffer returned %d, want 0", n)
	}
}
