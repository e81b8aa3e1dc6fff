package p9

import "testing"

// FuzzDecode exercises the "never panic, just error out" property: Decode
// must never panic or read out of bounds no matter how the input frame is
// truncated or mangled, mirroring the spec's truncation-safety invariant
// for the bounded cursor.
func FuzzDecode(f *testing.F) {
	seed := []Message{
		&Tversion{Msize: 8192, Version: "9P2000.L"},
		&Tattach{Fid: 1, Afid: NoFID, Uname: "root", Aname: "", NUname: 0},
		&Rwalk{Wqids: []Qid{{Type: QTDIR, Version: 1, Path: 2}}},
		&Rlerror{Ecode: 2},
	}
	for _, m := range seed {
		m.SetTag(1)
		if b, err := Encode(m); err == nil {
			f.Add(b)
		}
	}

	f.Fuzz(func(t *testing.T, b []byte) {
		m, n, err := Decode(b)
		if err != nil {
			return
		}
		if m == nil {
			if n != 0 {
				t.Fatalf("Decode returned nil message but n=%d", n)
			}
			return
		}
		if n <= 0 || n > len(b) {
			t.Fatalf("Decode consumed %d bytes out of %d-byte input", n, len(b))
		}
	})
}

// FuzzEncodeDecodeRoundTrip checks that any successfully encoded Tversion
// survives a decode with identical field values, the one variant with a
// single string field simple enough to fuzz directly.
func FuzzEncodeDecodeRoundTrip(f *testing.F) {
	f.Add(uint32(8192), "9P2000.L")
	f.Add(uint32(0), "")

	f.Fuzz(func(t *testing.T, msize uint32, version string) {
		if len(version) > 1<<16-1 {
			t.Skip("string too long to encode in a u16-prefixed field")
		}
		m := &Tversion{Msize: msize, Version: version}
		m.SetTag(NoTag)

		buf, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, n, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if n != len(buf) {
			t.Fatalf("Decode consumed %d, want %d", n, len(buf))
		}
		tv := got.(*Tversion)
		if tv.Msize != msize || tv.Version != version {
			t.Fatalf("round trip = %+v, want msize=%d version=%q", tv, msize, version)
		}
	})
}
