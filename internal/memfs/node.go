// Package memfs is a demo in-memory 9P2000.L backend: a tree of nodes
// held entirely in process memory, used to exercise every operation
// pkg/p9 can decode without needing a real filesystem underneath. It is
// not a production file server — see the Non-goals in SPEC_FULL.md.
package memfs

import (
	"sync"

	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

// node is one file, directory, or symlink in the tree. Mirrors the shape
// filesystem/ninep.go builds from os.FileInfo (qid, mode, mtime), but
// generalized to live entirely in memory instead of wrapping a real
// os.File.
type node struct {
	mu sync.Mutex

	name   string
	parent *node

	qidPath uint64
	qidType uint8
	qidVer  uint32

	mode uint32 // unix permission bits, ORed with p9 QT*-derived DM bits for dirs
	uid  uint32
	gid  uint32

	atimeSec, atimeNsec int64
	mtimeSec, mtimeNsec int64
	ctimeSec, ctimeNsec int64

	data     []byte           // regular file content
	symlink  string           // target, if this is a symlink
	children map[string]*node // directory entries, if this is a directory
	rdevMaj  uint32
	rdevMin  uint32

	xattrs map[string][]byte

	locks []fileLock
}

type fileLock struct {
	typ      uint8
	start    uint64
	length   uint64
	procID   uint32
	clientID string
}

func (n *node) isDir() bool     { return n.children != nil }
func (n *node) isSymlink() bool { return n.qidType&p9.QTSYMLINK != 0 }

func (n *node) qid() p9.Qid {
	return p9.Qid{Type: n.qidType, Version: n.qidVer, Path: n.qidPath}
}

// bump increments the node's QID version; called on every mutation a
// client could observe across a walk (write, setattr, truncate, rename
// target replacement), the same invalidation signal a real kernel would
// give via ctime/mtime changes.
func (n *node) bump() { n.qidVer++ }

func newDirNode(name string, parent *node) *node {
	return &node{
		name:     name,
		parent:   parent,
		qidType:  p9.QTDIR,
		mode:     0755 | dmDir,
		children: map[string]*node{},
		xattrs:   map[string][]byte{},
	}
}

func newFileNode(name string, parent *node, mode uint32) *node {
	return &node{
		name:    name,
		parent:  parent,
		mode:    mode,
		xattrs:  map[string][]byte{},
	}
}

func newSymlinkNode(name string, parent *node, target string) *node {
	return &node{
		name:    name,
		parent:  parent,
		qidType: p9.QTSYMLINK,
		mode:    0777,
		symlink: target,
		xattrs:  map[string][]byte{},
	}
}

// dmDir mirrors 9P2000's DMDIR high bit in the 32-bit mode word returned
// by Getattr's mode field, the same bit filesystem/ninep.go
// sets in dirTo9p2000Mode.
const dmDir = 0x80000000
