package memfs

import (
	"encoding/binary"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/sys/unix"

	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

// fidTableCapacity bounds the LRU safety net; a well-behaved client never
// hits it since it clunks fids as it goes, but a leaking client's oldest
// fids get force-evicted instead of growing the server without bound.
const fidTableCapacity = 4096

type fidEntry struct {
	node      *node
	diroffset uint64 // Readdir cursor, reset on Lopen
}

// Server is a p9.Message-level 9P2000.L backend over an in-memory tree.
// Every exported method corresponds to one T-message pkg/p9 can decode;
// cmd/p9srv calls these directly after Decode and before re-Encoding the
// matching R-message.
type Server struct {
	mu   sync.Mutex
	root *node

	nextPath uint64
	verSeed  uint32

	fids    map[uint32]*fidEntry
	fidLRU  *lru.Cache
}

// NewServer creates a backend with a single root directory named name.
func NewServer(name string) *Server {
	s := &Server{
		root:    newDirNode(name, nil),
		fids:    map[uint32]*fidEntry{},
		verSeed: uuidVersionSeed(),
	}
	s.root.qidPath = s.allocPath()
	now := time.Now()
	s.root.atimeSec, s.root.mtimeSec, s.root.ctimeSec = now.Unix(), now.Unix(), now.Unix()

	cache, _ := lru.NewWithEvict(fidTableCapacity, func(key, value interface{}) {
		// Safety net only: a leaking client's oldest fid is force-clunked
		// so memory stays bounded. Well-behaved clients never trigger this
		// since Clunk removes both the map entry and the LRU entry itself.
		delete(s.fids, key.(uint32))
	})
	s.fidLRU = cache

	return s
}

// uuidVersionSeed derives a QID-version seed from a fresh random UUID, the
// way kryptco-kr/src/common/protocol/pair.go derives a UUID from key
// material: here there's no stable key material, so a v4 (random) UUID is
// used directly, taking its first four bytes as the seed. This only needs
// to avoid colliding with a *previous* server instance's version numbers
// within the same process lifetime, not to be cryptographically unique.
func uuidVersionSeed() uint32 {
	id := uuid.NewV4()
	return binary.LittleEndian.Uint32(id.Bytes()[0:4])
}

func (s *Server) allocPath() uint64 {
	s.nextPath++
	return s.nextPath
}

func (s *Server) mintVersion(n *node) {
	n.qidVer = s.verSeed + n.qidVer
}

// --- fid table -------------------------------------------------------

func (s *Server) lookupFid(fid uint32) (*fidEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.fids[fid]
	if !ok {
		return nil, unix.EBADF
	}
	s.fidLRU.Get(fid) // refresh recency
	return e, nil
}

func (s *Server) setFid(fid uint32, n *node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &fidEntry{node: n}
	s.fids[fid] = e
	s.fidLRU.Add(fid, e)
}

// Clunk releases fid. Clunking an unknown fid is not an error (matching
// np.c's np_clunk, which is forgiving about double-clunks during error
// unwinding).
func (s *Server) Clunk(fid uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fids, fid)
	s.fidLRU.Remove(fid)
	return nil
}

// --- path resolution ---------------------------------------------------

func lookupChild(dir *node, name string) (*node, error) {
	if !dir.isDir() {
		return nil, unix.ENOTDIR
	}
	switch name {
	case ".":
		return dir, nil
	case "..":
		if dir.parent != nil {
			return dir.parent, nil
		}
		return dir, nil
	}
	c, ok := dir.children[name]
	if !ok {
		return nil, unix.ENOENT
	}
	return c, nil
}

// --- operations ---------------------------------------------------------

// Attach binds fid to the tree root. aname/uname are accepted but not
// interpreted (this backend exposes exactly one tree); afid is ignored,
// since Tauth is a no-op pass-through here (see DESIGN.md).
func (s *Server) Attach(fid uint32, uname, aname string) (p9.Qid, error) {
	s.setFid(fid, s.root)
	return s.root.qid(), nil
}

// Walk resolves names relative to fid's node and, if every element
// resolves, binds newfid to the final node. A zero-length names walks to
// the same node as fid (a fid "clone", matching Twalk's nwname=0 case).
func (s *Server) Walk(fid, newfid uint32, names []string) ([]p9.Qid, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return nil, err
	}

	cur := e.node
	qids := make([]p9.Qid, 0, len(names))
	for _, name := range names {
		next, err := lookupChild(cur, name)
		if err != nil {
			// Partial walk: return qids resolved so far, no error, the
			// way Twalk signals "stopped early" via a short Rwalk.
			if len(qids) > 0 {
				return qids, nil
			}
			return nil, err
		}
		cur = next
		qids = append(qids, cur.qid())
	}
	s.setFid(newfid, cur)
	return qids, nil
}

// Lopen opens fid's node with the given Linux O_* flags and returns its
// qid and a preferred I/O size.
func (s *Server) Lopen(fid uint32, flags uint32) (p9.Qid, uint32, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.Qid{}, 0, err
	}
	e.diroffset = 0
	return e.node.qid(), 65536, nil
}

// Lcreate creates name under the directory referenced by fid, opens it,
// and rebinds fid to the new node (matching Tlcreate's fid-reuse
// semantics: the directory fid becomes the new file's fid).
func (s *Server) Lcreate(fid uint32, name string, flags, mode, gid uint32) (p9.Qid, uint32, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.Qid{}, 0, err
	}
	dir := e.node
	if !dir.isDir() {
		return p9.Qid{}, 0, unix.ENOTDIR
	}
	if _, exists := dir.children[name]; exists {
		return p9.Qid{}, 0, unix.EEXIST
	}

	// name is borrowed from the decode buffer; the tree retains it past
	// this call, so it must be copied (p9.Decode's zero-copy contract).
	name = p9.StrdupOwned(name)
	n := newFileNode(name, dir, mode&0777)
	n.gid = gid
	n.qidPath = s.allocPath()
	s.mintVersion(n)
	now := time.Now()
	n.atimeSec, n.mtimeSec, n.ctimeSec = now.Unix(), now.Unix(), now.Unix()

	dir.children[name] = n
	dir.bump()

	s.setFid(fid, n)
	return n.qid(), 65536, nil
}

// Read returns up to count bytes starting at offset from fid's node.
func (s *Server) Read(fid uint32, offset uint64, count uint32) ([]byte, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return nil, err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.isDir() {
		return nil, unix.EISDIR
	}
	if offset >= uint64(len(n.data)) {
		return nil, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(n.data)) {
		end = uint64(len(n.data))
	}
	out := make([]byte, end-offset)
	copy(out, n.data[offset:end])
	return out, nil
}

// Write writes data at offset into fid's node, growing it if needed, and
// returns the number of bytes written.
func (s *Server) Write(fid uint32, offset uint64, data []byte) (uint32, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return 0, err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.isDir() {
		return 0, unix.EISDIR
	}
	need := offset + uint64(len(data))
	if uint64(len(n.data)) < need {
		grown := make([]byte, need)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:], data)
	n.mtimeSec = time.Now().Unix()
	n.bump()
	return uint32(len(data)), nil
}

// Remove unlinks fid's node from its parent and clunks fid.
func (s *Server) Remove(fid uint32) error {
	e, err := s.lookupFid(fid)
	if err != nil {
		return err
	}
	n := e.node
	if n.parent == nil {
		return unix.EBUSY
	}
	if n.isDir() && len(n.children) > 0 {
		return unix.ENOTEMPTY
	}
	delete(n.parent.children, n.name)
	n.parent.bump()
	return s.Clunk(fid)
}

// Statfs reports coarse filesystem statistics. Since this backend has no
// real device, it fills in a synthetic unix.Statfs_t-shaped reply derived
// from the tree's own node count, matching filesystem/ninep.go's habit of
// reaching into syscall stat structures for shape rather than inventing
// a bespoke struct.
func (s *Server) Statfs(fid uint32) (p9.Rstatfs, error) {
	if _, err := s.lookupFid(fid); err != nil {
		return p9.Rstatfs{}, err
	}
	var st unix.Statfs_t
	_ = unix.Statfs("/", &st) // best-effort, for a plausible bsize/type only

	var descendants func(n *node) uint64
	descendants = func(n *node) uint64 {
		var c uint64
		for _, ch := range n.children {
			c += 1 + descendants(ch)
		}
		return c
	}
	s.mu.Lock()
	files := descendants(s.root)
	s.mu.Unlock()

	return p9.Rstatfs{
		Type_:   uint32(st.Type),
		Bsize:   uint32(st.Bsize),
		Blocks:  1 << 20,
		Bfree:   1 << 19,
		Bavail:  1 << 19,
		Files:   files + 1,
		Ffree:   1 << 16,
		Fsid:    0,
		Namelen: 255,
	}, nil
}

// Getattr fills in every field regardless of mask and reports mask back
// as Valid.
func (s *Server) Getattr(fid uint32, mask uint64) (p9.Rgetattr, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.Rgetattr{}, err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()

	nlink := uint64(1)
	if n.isDir() {
		nlink = uint64(2 + len(n.children))
	}
	return p9.Rgetattr{
		Valid:     mask,
		Qid:       n.qid(),
		Mode:      n.mode,
		Uid:       n.uid,
		Gid:       n.gid,
		Nlink:     nlink,
		Rdev:      uint64(n.rdevMaj)<<32 | uint64(n.rdevMin),
		Size:      uint64(len(n.data)),
		Blksize:   4096,
		Blocks:    uint64(len(n.data)+511) / 512,
		AtimeSec:  uint64(n.atimeSec),
		AtimeNsec: uint64(n.atimeNsec),
		MtimeSec:  uint64(n.mtimeSec),
		MtimeNsec: uint64(n.mtimeNsec),
		CtimeSec:  uint64(n.ctimeSec),
		CtimeNsec: uint64(n.ctimeNsec),
	}, nil
}

// Setattr applies the fields selected by valid.
func (s *Server) Setattr(fid uint32, valid, mode, uidv, gidv uint32, size uint64, atimeSec, atimeNsec, mtimeSec, mtimeNsec uint64) error {
	e, err := s.lookupFid(fid)
	if err != nil {
		return err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()

	if valid&p9.SetattrMode != 0 {
		n.mode = (n.mode &^ 0777) | (mode & 0777)
	}
	if valid&p9.SetattrUID != 0 {
		n.uid = uidv
	}
	if valid&p9.SetattrGID != 0 {
		n.gid = gidv
	}
	if valid&p9.SetattrSize != 0 {
		if size < uint64(len(n.data)) {
			n.data = n.data[:size]
		} else if size > uint64(len(n.data)) {
			grown := make([]byte, size)
			copy(grown, n.data)
			n.data = grown
		}
	}
	if valid&p9.SetattrAtime != 0 {
		n.atimeSec, n.atimeNsec = int64(atimeSec), int64(atimeNsec)
	}
	if valid&p9.SetattrMtime != 0 {
		n.mtimeSec, n.mtimeNsec = int64(mtimeSec), int64(mtimeNsec)
	}
	n.ctimeSec = time.Now().Unix()
	n.bump()
	return nil
}

// Readdir packs directory entries starting after offset into a buffer of
// at most count bytes, returning the raw Rreaddir payload.
func (s *Server) Readdir(fid uint32, offset uint64, count uint32) ([]byte, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return nil, err
	}
	n := e.node
	if !n.isDir() {
		return nil, unix.ENOTDIR
	}

	type ent struct {
		name string
		n    *node
	}
	all := make([]ent, 0, len(n.children)+2)
	all = append(all, ent{".", n}, ent{"..", n.parent})
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sortStrings(names)
	for _, name := range names {
		all = append(all, ent{name, n.children[name]})
	}
	if all[1].n == nil {
		all[1].n = n
	}

	buf := make([]byte, count)
	used := 0
	var off uint64
	for _, a := range all {
		off++
		if off <= offset {
			continue
		}
		typ := uint8(0)
		if a.n.isDir() {
			typ = p9.QTDIR
		}
		wn := p9.SerializeDirent(a.n.qid(), off, typ, a.name, buf[used:])
		if wn == 0 {
			break
		}
		used += wn
	}
	return buf[:used], nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Symlink creates a symlink named name under fid's directory.
func (s *Server) Symlink(fid uint32, name, target string, gid uint32) (p9.Qid, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.Qid{}, err
	}
	dir := e.node
	if !dir.isDir() {
		return p9.Qid{}, unix.ENOTDIR
	}
	if _, exists := dir.children[name]; exists {
		return p9.Qid{}, unix.EEXIST
	}
	// name and target are both decode-buffer-borrowed; the node outlives
	// the request, so both must be copied to owned strings.
	name = p9.StrdupOwned(name)
	target = p9.StrdupOwned(target)
	n := newSymlinkNode(name, dir, target)
	n.gid = gid
	n.qidPath = s.allocPath()
	s.mintVersion(n)
	dir.children[name] = n
	dir.bump()
	return n.qid(), nil
}

// Mknod creates a device/fifo/socket node named name under fid's directory.
func (s *Server) Mknod(fid uint32, name string, mode, major, minor, gid uint32) (p9.Qid, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.Qid{}, err
	}
	dir := e.node
	if !dir.isDir() {
		return p9.Qid{}, unix.ENOTDIR
	}
	if _, exists := dir.children[name]; exists {
		return p9.Qid{}, unix.EEXIST
	}
	name = p9.StrdupOwned(name)
	n := newFileNode(name, dir, mode&0777)
	n.gid = gid
	n.rdevMaj, n.rdevMin = major, minor
	n.qidPath = s.allocPath()
	s.mintVersion(n)
	dir.children[name] = n
	dir.bump()
	return n.qid(), nil
}

// Rename moves fid's node to be named name under the directory referenced
// by dfid.
func (s *Server) Rename(fid, dfid uint32, name string) error {
	e, err := s.lookupFid(fid)
	if err != nil {
		return err
	}
	de, err := s.lookupFid(dfid)
	if err != nil {
		return err
	}
	n := e.node
	newDir := de.node
	if !newDir.isDir() {
		return unix.ENOTDIR
	}
	if n.parent == nil {
		return unix.EBUSY
	}
	if _, exists := newDir.children[name]; exists {
		return unix.EEXIST
	}
	name = p9.StrdupOwned(name)
	delete(n.parent.children, n.name)
	n.parent.bump()
	n.parent = newDir
	n.name = name
	newDir.children[name] = n
	newDir.bump()
	return nil
}

// Readlink returns the target of fid's symlink node.
func (s *Server) Readlink(fid uint32) (string, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return "", err
	}
	if !e.node.isSymlink() {
		return "", unix.EINVAL
	}
	return e.node.symlink, nil
}

// Fsync is a no-op: writes are already durable in the in-memory tree for
// as long as the process lives (see Non-goals: no crash safety).
func (s *Server) Fsync(fid uint32) error {
	_, err := s.lookupFid(fid)
	return err
}

// Lock attempts a whole/partial-range advisory lock on fid's node.
func (s *Server) Lock(fid uint32, typ uint8, flags uint32, start, length uint64, procID uint32, clientID string) (uint8, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.LockStatusError, err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()

	if typ == p9.LockTypeUnlock {
		out := n.locks[:0]
		for _, l := range n.locks {
			if l.clientID != clientID || l.start != start || l.length != length {
				out = append(out, l)
			}
		}
		n.locks = out
		return p9.LockStatusSuccess, nil
	}

	for _, l := range n.locks {
		if l.clientID == clientID {
			continue
		}
		if rangesOverlap(l.start, l.length, start, length) {
			if l.typ == p9.LockTypeWrlock || typ == p9.LockTypeWrlock {
				return p9.LockStatusBlocked, nil
			}
		}
	}
	n.locks = append(n.locks, fileLock{typ: typ, start: start, length: length, procID: procID, clientID: clientID})
	return p9.LockStatusSuccess, nil
}

// Getlock reports whether a conflicting lock exists, without acquiring one.
func (s *Server) Getlock(fid uint32, typ uint8, start, length uint64, procID uint32, clientID string) (uint8, uint64, uint64, uint32, string, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.LockTypeUnlock, 0, 0, 0, "", err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, l := range n.locks {
		if l.clientID == clientID {
			continue
		}
		if rangesOverlap(l.start, l.length, start, length) && (l.typ == p9.LockTypeWrlock || typ == p9.LockTypeWrlock) {
			return l.typ, l.start, l.length, l.procID, l.clientID, nil
		}
	}
	return p9.LockTypeUnlock, 0, 0, 0, "", nil
}

func rangesOverlap(aStart, aLen, bStart, bLen uint64) bool {
	aEnd := aStart + aLen
	bEnd := bStart + bLen
	if aLen == 0 {
		aEnd = ^uint64(0)
	}
	if bLen == 0 {
		bEnd = ^uint64(0)
	}
	return aStart < bEnd && bStart < aEnd
}

// Link creates a hard link named name under dfid pointing at fid's node.
// Since nodes here carry no independent link count beyond directory
// entries, this aliases the same *node under a second name (multiple
// directory entries sharing one node), which is enough to exercise the
// wire operation without a full inode-refcounting model.
func (s *Server) Link(dfid, fid uint32, name string) error {
	de, err := s.lookupFid(dfid)
	if err != nil {
		return err
	}
	e, err := s.lookupFid(fid)
	if err != nil {
		return err
	}
	dir := de.node
	if !dir.isDir() {
		return unix.ENOTDIR
	}
	if _, exists := dir.children[name]; exists {
		return unix.EEXIST
	}
	dir.children[p9.StrdupOwned(name)] = e.node
	dir.bump()
	return nil
}

// Mkdir creates a directory named name under fid's directory and returns
// its qid.
func (s *Server) Mkdir(fid uint32, name string, mode, gid uint32) (p9.Qid, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return p9.Qid{}, err
	}
	dir := e.node
	if !dir.isDir() {
		return p9.Qid{}, unix.ENOTDIR
	}
	if _, exists := dir.children[name]; exists {
		return p9.Qid{}, unix.EEXIST
	}
	name = p9.StrdupOwned(name)
	n := newDirNode(name, dir)
	n.mode = (mode & 0777) | dmDir
	n.gid = gid
	n.qidPath = s.allocPath()
	s.mintVersion(n)
	dir.children[name] = n
	dir.bump()
	return n.qid(), nil
}

// Xattrwalk clones newfid to reference the named extended attribute of
// fid's node, returning its current size.
func (s *Server) Xattrwalk(fid, newfid uint32, name string) (uint64, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return 0, err
	}
	n := e.node
	n.mu.Lock()
	v, ok := n.xattrs[name]
	n.mu.Unlock()
	if !ok {
		return 0, unix.ENODATA
	}
	s.setFid(newfid, n)
	return uint64(len(v)), nil
}

// Xattrcreate prepares fid's node to receive attrSize bytes under name via
// a subsequent Write; this backend has no size-reservation step, so it
// simply records an empty value of the requested name now.
func (s *Server) Xattrcreate(fid uint32, name string, attrSize uint64, flags uint32) error {
	e, err := s.lookupFid(fid)
	if err != nil {
		return err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.xattrs[name]; exists && flags&unix.XATTR_CREATE != 0 {
		return unix.EEXIST
	}
	n.xattrs[p9.StrdupOwned(name)] = make([]byte, 0, attrSize)
	return nil
}

// WriteXattr is not a wire operation by itself (9P2000.L reuses Twrite
// against the fid bound by Xattrcreate/Xattrwalk); cmd/p9srv calls this
// instead of Write when it knows, from its own fid-kind tracking, that
// the target fid was last bound by Xattrcreate.
func (s *Server) WriteXattr(fid uint32, name string, data []byte) (uint32, error) {
	e, err := s.lookupFid(fid)
	if err != nil {
		return 0, err
	}
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.xattrs[name] = append(n.xattrs[name], data...)
	return uint32(len(data)), nil
}
