package memfs

import (
	"bytes"
	"testing"

	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

func TestAttachLcreateWriteRead(t *testing.T) {
	s := NewServer("export")

	if _, err := s.Attach(1, "nobody", ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	qid, _, err := s.Lcreate(1, "greeting", 0, 0644, 0)
	if err != nil {
		t.Fatalf("Lcreate: %v", err)
	}
	if qid.Type != 0 {
		t.Fatalf("Lcreate qid type = %#x, want 0 (regular file)", qid.Type)
	}

	if _, err := s.Write(1, 0, []byte("hello, 9p")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(1, 0, 64)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte("hello, 9p")) {
		t.Fatalf("Read = %q, want %q", got, "hello, 9p")
	}
}

func TestWalkUnknownNameFails(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")

	if _, err := s.Walk(1, 2, []string{"nope"}); err == nil {
		t.Fatalf("Walk to missing name succeeded")
	}
}

func TestMkdirAndReaddir(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")

	if _, err := s.Mkdir(1, "sub", 0755, 0); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	qids, err := s.Walk(1, 2, []string{"sub"})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(qids) != 1 || qids[0].Type != p9.QTDIR {
		t.Fatalf("Walk to sub = %+v, want one QTDIR qid", qids)
	}

	data, err := s.Readdir(1, 0, 4096)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	ents, err := p9.DecodeDirents(data)
	if err != nil {
		t.Fatalf("DecodeDirents: %v", err)
	}

	names := map[string]bool{}
	for _, e := range ents {
		names[e.Name] = true
	}
	for _, want := range []string{".", "..", "sub"} {
		if !names[want] {
			t.Fatalf("Readdir missing entry %q, got %+v", want, ents)
		}
	}
}

func TestRemoveRejectsNonemptyDir(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")
	s.Mkdir(1, "sub", 0755, 0)

	s.Walk(1, 2, []string{"sub"})
	s.Lcreate(2, "f", 0, 0644, 0)

	s.Walk(1, 3, []string{"sub"})
	if err := s.Remove(3); err == nil {
		t.Fatalf("Remove of non-empty dir succeeded")
	}
}

func TestSymlinkReadlink(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")

	qid, err := s.Symlink(1, "link", "/target", 0)
	if err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if qid.Type != p9.QTSYMLINK {
		t.Fatalf("Symlink qid type = %#x, want QTSYMLINK", qid.Type)
	}

	s.Walk(1, 2, []string{"link"})
	target, err := s.Readlink(2)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "/target" {
		t.Fatalf("Readlink = %q, want /target", target)
	}
}

func TestRenameMovesAcrossDirectories(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")
	s.Mkdir(1, "a", 0755, 0)
	s.Mkdir(1, "b", 0755, 0)

	s.Walk(1, 2, []string{"a"})
	s.Lcreate(2, "f", 0, 0644, 0)

	s.Walk(1, 3, []string{"a", "f"})
	s.Walk(1, 4, []string{"b"})
	if err := s.Rename(3, 4, "f"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := s.Walk(1, 5, []string{"a", "f"}); err == nil {
		t.Fatalf("old path still resolves after rename")
	}
	if _, err := s.Walk(1, 6, []string{"b", "f"}); err != nil {
		t.Fatalf("new path does not resolve after rename: %v", err)
	}
}

func TestLockConflictsBetweenClients(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")
	s.Lcreate(1, "f", 0, 0644, 0)

	status, err := s.Lock(1, p9.LockTypeWrlock, 0, 0, 0, 100, "clientA")
	if err != nil || status != p9.LockStatusSuccess {
		t.Fatalf("first Lock = %d, %v", status, err)
	}

	status, err = s.Lock(1, p9.LockTypeWrlock, 0, 0, 0, 200, "clientB")
	if err != nil || status != p9.LockStatusBlocked {
		t.Fatalf("conflicting Lock = %d, %v, want LockStatusBlocked", status, err)
	}

	typ, _, _, procID, clientID, err := s.Getlock(1, p9.LockTypeWrlock, 0, 0, 200, "clientB")
	if err != nil {
		t.Fatalf("Getlock: %v", err)
	}
	if typ != p9.LockTypeWrlock || procID != 100 || clientID != "clientA" {
		t.Fatalf("Getlock = type=%d proc=%d client=%q, want wrlock held by clientA/100", typ, procID, clientID)
	}
}

func TestXattrWalkAndCreate(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")
	s.Lcreate(1, "f", 0, 0644, 0)

	if err := s.Xattrcreate(1, "user.note", 5, 0); err != nil {
		t.Fatalf("Xattrcreate: %v", err)
	}
	if _, err := s.WriteXattr(1, "user.note", []byte("hello")); err != nil {
		t.Fatalf("WriteXattr: %v", err)
	}

	// Lcreate rebound fid 1 to "f"; clone it rather than walking "f" from it.
	s.Walk(1, 2, nil)
	size, err := s.Xattrwalk(2, 3, "user.note")
	if err != nil {
		t.Fatalf("Xattrwalk: %v", err)
	}
	if size != 5 {
		t.Fatalf("Xattrwalk size = %d, want 5", size)
	}
}

func TestGetattrSetattrRoundTrip(t *testing.T) {
	s := NewServer("export")
	s.Attach(1, "nobody", "")
	s.Lcreate(1, "f", 0, 0644, 0)

	if err := s.Setattr(1, p9.SetattrMode, 0600, 0, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatalf("Setattr: %v", err)
	}

	ga, err := s.Getattr(1, p9.GetattrAll)
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if ga.Mode&0777 != 0600 {
		t.Fatalf("Getattr mode = %#o, want 0600", ga.Mode&0777)
	}
}
