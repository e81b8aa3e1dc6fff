// Command p9srv listens on a TCP address and serves an in-memory
// 9P2000.L tree (internal/memfs) over the wire, using pkg/p9 purely for
// (de)serialization. The transport loop here — framing, connection
// handling, the Tread/Twrite count-vs-msize bound — is deliberately kept
// out of pkg/p9, the way cmd/ufs/ufs.go wires protocol.NewServer instead
// of folding transport into the protocol package itself.
package main

import (
	"encoding/binary"
	"flag"
	"io"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/sandia-minimega/ninep2000l/pkg/minilog"
	"github.com/sandia-minimega/ninep2000l/internal/memfs"
	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

var (
	addr  = flag.String("addr", ":5640", "listen address")
	root  = flag.String("root", "root", "name of the exported tree's root directory")
	level = flag.String("level", "warn", "minilog level")
)

func main() {
	flag.Parse()
	minilog.AddLogger("stderr", os.Stderr, minilog.LevelInt(*level), true)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		minilog.Fatal("listen %s: %v", *addr, err)
	}
	minilog.Info("p9srv listening on %s, root=%q", *addr, *root)

	backend := memfs.NewServer(*root)
	for {
		conn, err := ln.Accept()
		if err != nil {
			minilog.Error("accept: %v", err)
			continue
		}
		go serveConn(conn, backend)
	}
}

// session tracks per-connection state that sits above the stateless
// codec and the shared backend: the negotiated msize bound (spec.md
// Open Question #3, resolved in favor of enforcing it here) and which
// fids are mid-xattr-create, since Twrite against such a fid must land
// in the node's xattr store instead of its regular file data.
type session struct {
	conn    net.Conn
	backend *memfs.Server

	mu        sync.Mutex
	msize     uint32
	xattrFids map[uint32]string
}

func serveConn(conn net.Conn, backend *memfs.Server) {
	defer conn.Close()
	s := &session{conn: conn, backend: backend, msize: 65536, xattrFids: map[uint32]string{}}

	for {
		frame, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				minilog.Warn("%s: read frame: %v", conn.RemoteAddr(), err)
			}
			return
		}
		req, _, err := p9.Decode(frame)
		if err != nil {
			minilog.Warn("%s: decode: %v", conn.RemoteAddr(), err)
			return
		}
		if req == nil {
			minilog.Warn("%s: short frame", conn.RemoteAddr())
			return
		}

		resp := s.dispatch(req)
		resp.SetTag(req.GetTag())
		out, err := p9.Encode(resp)
		if err != nil {
			minilog.Error("%s: encode reply to %s: %v", conn.RemoteAddr(), req.Type(), err)
			return
		}
		if _, err := conn.Write(out); err != nil {
			minilog.Warn("%s: write: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// readFrame reads one size-prefixed 9P2000.L frame: the 4-byte size field
// tells us how many more bytes to read before handing the whole thing to
// p9.Decode.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size < 7 {
		return hdr[:], nil // let Decode reject the undersized frame uniformly
	}
	buf := make([]byte, size)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, err
	}
	return buf, nil
}

func errcode(err error) uint32 {
	if errno, ok := err.(unix.Errno); ok {
		return uint32(errno)
	}
	return uint32(unix.EIO)
}

func lerror(err error) *p9.Rlerror {
	return &p9.Rlerror{Ecode: errcode(err)}
}

// dispatch maps one decoded T-message to its R-message (or Rlerror). The
// switch mirrors np_deserialize's case list in call order, generalized
// from "decode this type" to "decode, apply, and re-encode."
func (s *session) dispatch(req p9.Message) p9.Message {
	switch m := req.(type) {
	case *p9.Tversion:
		s.mu.Lock()
		if m.Msize < s.msize {
			s.msize = m.Msize
		}
		s.mu.Unlock()
		ver := m.Version
		if ver != "9P2000.L" {
			ver = "unknown"
		}
		return &p9.Rversion{Msize: s.msize, Version: ver}

	case *p9.Tauth:
		// No authentication is actually required by this backend (spec
		// Non-goals: auth bytes are opaque and never interpreted); Tauth
		// still gets a qid back so clients that always auth-then-attach
		// aren't forced down an error path.
		return &p9.Rauth{Qid: p9.Qid{Type: p9.QTAUTH}}

	case *p9.Tattach:
		qid, err := s.backend.Attach(m.Fid, m.Uname, m.Aname)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rattach{Qid: qid}

	case *p9.Tflush:
		return &p9.Rflush{}

	case *p9.Twalk:
		if len(m.Wnames) > p9.MaxWElem {
			return lerror(unix.EINVAL)
		}
		qids, err := s.backend.Walk(m.Fid, m.NewFid, m.Wnames)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rwalk{Wqids: qids}

	case *p9.Tlopen:
		qid, iounit, err := s.backend.Lopen(m.Fid, m.Mode)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rlopen{Qid: qid, Iounit: iounit}

	case *p9.Tlcreate:
		qid, iounit, err := s.backend.Lcreate(m.Fid, m.Name, m.Flags, m.Mode, m.Gid)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rlcreate{Qid: qid, Iounit: iounit}

	case *p9.Tread:
		s.mu.Lock()
		bound := s.msize
		s.mu.Unlock()
		count := m.Count
		if count > bound {
			count = bound
		}
		data, err := s.backend.Read(m.Fid, m.Offset, count)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rread{Data: data}

	case *p9.Twrite:
		s.mu.Lock()
		_, isXattr := s.xattrFids[m.Fid]
		bound := s.msize
		s.mu.Unlock()
		data := m.Data
		if uint32(len(data)) > bound {
			data = data[:bound]
		}
		var n uint32
		var err error
		if isXattr {
			s.mu.Lock()
			name := s.xattrFids[m.Fid]
			s.mu.Unlock()
			n, err = s.backend.WriteXattr(m.Fid, name, data)
		} else {
			n, err = s.backend.Write(m.Fid, m.Offset, data)
		}
		if err != nil {
			return lerror(err)
		}
		return &p9.Rwrite{Count: n}

	case *p9.Tclunk:
		s.mu.Lock()
		delete(s.xattrFids, m.Fid)
		s.mu.Unlock()
		if err := s.backend.Clunk(m.Fid); err != nil {
			return lerror(err)
		}
		return &p9.Rclunk{}

	case *p9.Tremove:
		if err := s.backend.Remove(m.Fid); err != nil {
			return lerror(err)
		}
		return &p9.Rremove{}

	case *p9.Tstatfs:
		r, err := s.backend.Statfs(m.Fid)
		if err != nil {
			return lerror(err)
		}
		return &r

	case *p9.Tsymlink:
		qid, err := s.backend.Symlink(m.Fid, m.Name, m.Symtgt, m.Gid)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rsymlink{Qid: qid}

	case *p9.Tmknod:
		qid, err := s.backend.Mknod(m.Fid, m.Name, m.Mode, m.Major, m.Minor, m.Gid)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rmknod{Qid: qid}

	case *p9.Trename:
		if err := s.backend.Rename(m.Fid, m.Dfid, m.Name); err != nil {
			return lerror(err)
		}
		return &p9.Rrename{}

	case *p9.Treadlink:
		target, err := s.backend.Readlink(m.Fid)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rreadlink{Target: target}

	case *p9.Tgetattr:
		r, err := s.backend.Getattr(m.Fid, m.RequestMask)
		if err != nil {
			return lerror(err)
		}
		return &r

	case *p9.Tsetattr:
		err := s.backend.Setattr(m.Fid, m.Valid, m.Mode, m.Uid, m.Gid, m.Size, m.AtimeSec, m.AtimeNsec, m.MtimeSec, m.MtimeNsec)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rsetattr{}

	case *p9.Txattrwalk:
		size, err := s.backend.Xattrwalk(m.Fid, m.NewFid, m.Name)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rxattrwalk{Size: size}

	case *p9.Txattrcreate:
		if err := s.backend.Xattrcreate(m.Fid, m.Name, m.AttrSize, m.Flags); err != nil {
			return lerror(err)
		}
		s.mu.Lock()
		s.xattrFids[m.Fid] = m.Name
		s.mu.Unlock()
		return &p9.Rxattrcreate{}

	case *p9.Treaddir:
		s.mu.Lock()
		bound := s.msize
		s.mu.Unlock()
		count := m.Count
		if count > bound {
			count = bound
		}
		data, err := s.backend.Readdir(m.Fid, m.Offset, count)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rreaddir{Data: data}

	case *p9.Tfsync:
		if err := s.backend.Fsync(m.Fid); err != nil {
			return lerror(err)
		}
		return &p9.Rfsync{}

	case *p9.Tlock:
		status, err := s.backend.Lock(m.Fid, m.Type_, m.Flags, m.Start, m.Length, m.ProcID, m.ClientID)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rlock{Status: status}

	case *p9.Tgetlock:
		typ, start, length, procID, clientID, err := s.backend.Getlock(m.Fid, m.Type_, m.Start, m.Length, m.ProcID, m.ClientID)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rgetlock{Type_: typ, Start: start, Length: length, ProcID: procID, ClientID: clientID}

	case *p9.Tlink:
		if err := s.backend.Link(m.Dfid, m.Fid, m.Name); err != nil {
			return lerror(err)
		}
		return &p9.Rlink{}

	case *p9.Tmkdir:
		qid, err := s.backend.Mkdir(m.Fid, m.Name, m.Mode, m.Gid)
		if err != nil {
			return lerror(err)
		}
		return &p9.Rmkdir{Qid: qid}

	default:
		if largeioDispatch != nil {
			if resp, ok := largeioDispatch(s, req); ok {
				return resp
			}
		}
		return lerror(unix.ENOSYS)
	}
}

// largeioDispatch is set by an init() in largeio.go when built with
// -tags largeio; left nil otherwise, the same registry-hook shape
// pkg/p9's extraDecoders uses to let a build-tag-gated file plug into an
// always-compiled switch.
var largeioDispatch func(*session, p9.Message) (p9.Message, bool)
