package p9

import (
	"bytes"
	"testing"
)

func TestEncodeTversion(t *testing.T) {
	m := &Tversion{Msize: 8192, Version: "9P2000.L"}
	m.SetTag(NoTag)

	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Body = msize(4) + strSize("9P2000.L")(2+8) = 14, frame = 7+14 = 21
	// (0x15). spec.md's own scenario 1 prose ("19 bytes") disagrees with
	// the 21-byte list it gives; the byte list (and this re-derived size)
	// is what Encode actually produces, the same way DESIGN.md re-derives
	// the dirent-packing scenario from np.c's own arithmetic instead of
	// the spec's inconsistent prose.
	want := []byte{
		0x15, 0x00, 0x00, 0x00, 0x64, 0xff, 0xff,
		0x00, 0x20, 0x00, 0x00,
		0x08, 0x00,
		0x39, 0x50, 0x32, 0x30, 0x30, 0x30, 0x2e, 0x4c,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode(Tversion) = % x, want % x", got, want)
	}
}

func TestEncodeTattachSize(t *testing.T) {
	m := &Tattach{Fid: 1, Afid: NoFID, Uname: "root", Aname: "", NUname: 0}
	m.SetTag(1)

	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != 27 {
		t.Fatalf("Encode(Tattach) size = %d, want 27", len(got))
	}
	if got[0] != 0x1b {
		t.Fatalf("Encode(Tattach) size byte = %#x, want 0x1b", got[0])
	}
}

func TestEncodeRwalkEmpty(t *testing.T) {
	m := &Rwalk{}
	m.SetTag(5)

	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != 9 {
		t.Fatalf("Encode(Rwalk empty) size = %d, want 9", len(got))
	}
	if !bytes.Equal(got[7:], []byte{0x00, 0x00}) {
		t.Fatalf("Encode(Rwalk empty) body = % x, want 00 00", got[7:])
	}
}

func TestEncodeRlerror(t *testing.T) {
	m := &Rlerror{Ecode: 2}
	m.SetTag(9)

	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != 11 {
		t.Fatalf("Encode(Rlerror) size = %d, want 11", len(got))
	}
	if got[4] != 7 {
		t.Fatalf("Encode(Rlerror) type id = %d, want 7", got[4])
	}
	if !bytes.Equal(got[7:], []byte{0x02, 0x00, 0x00, 0x00}) {
		t.Fatalf("Encode(Rlerror) body = % x, want 02 00 00 00", got[7:])
	}
}

func TestEncodeTwalkRejectsOverMaxWElem(t *testing.T) {
	wnames := make([]string, MaxWElem+1)
	for i := range wnames {
		wnames[i] = "x"
	}
	m := &Twalk{Fid: 1, NewFid: 2, Wnames: wnames}
	m.SetTag(1)

	if _, err := Encode(m); err == nil {
		t.Fatal("Encode(Twalk) with nwname=17 succeeded, want error")
	}
}

func TestDecodeRejectsOverMaxWElem(t *testing.T) {
	body := make([]byte, 2+4+ /* over-reported count encoded without matching data */ 0)
	hdr := []byte{0, 0, 0, 0, byte(msgRwalk), 1, 0}
	buf := append(hdr, body...)
	// nwqid = 17, but no actual qids follow.
	buf[7], buf[8] = 17, 0
	binaryPutUint32(buf[0:4], uint32(len(buf)))

	_, _, err := Decode(buf)
	if err == nil {
		t.Fatal("Decode(Rwalk) with nwqid=17 succeeded, want error")
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []Message{
		&Tversion{Msize: 65536, Version: "9P2000.L"},
		&Tattach{Fid: 1, Afid: NoFID, Uname: "root", Aname: "/export", NUname: 0},
		&Twalk{Fid: 1, NewFid: 2, Wnames: []string{"a", "b", "c"}},
		&Rwalk{Wqids: []Qid{{Type: QTDIR, Version: 1, Path: 2}}},
		&Tlcreate{Fid: 1, Name: "foo", Flags: 0x241, Mode: 0644, Gid: 100},
		&Tgetattr{Fid: 1, RequestMask: GetattrAll},
		&Tlock{Fid: 1, Type_: LockTypeWrlock, Flags: 0, Start: 0, Length: 0, ProcID: 42, ClientID: "client"},
		&Txattrwalk{Fid: 1, NewFid: 2, Name: "user.foo"},
		&Txattrcreate{Fid: 1, Name: "user.foo", AttrSize: 16, Flags: 0},
	}

	for _, m := range cases {
		m.SetTag(7)
		buf, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode(%T): %v", m, err)
		}
		got, n, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode(%T): %v", m, err)
		}
		if n != len(buf) {
			t.Fatalf("Decode(%T) consumed %d, want %d", m, n, len(buf))
		}
		if got.Type() != m.Type() {
			t.Fatalf("Decode(%T) type = %v, want %v", m, got.Type(), m.Type())
		}
		if got.GetTag() != 7 {
			t.Fatalf("Decode(%T) tag = %v, want 7", m, got.GetTag())
		}
	}
}

func TestDecodeIncompleteFrame(t *testing.T) {
	m := &Tversion{Msize: 8192, Version: "9P2000.L"}
	m.SetTag(NoTag)
	buf, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, n, err := Decode(buf[:len(buf)-1])
	if err != nil {
		t.Fatalf("Decode(short frame) returned error %v, want nil,0,nil", err)
	}
	if got != nil || n != 0 {
		t.Fatalf("Decode(short frame) = %v, %d, want nil, 0", got, n)
	}
}
