package p9

import "fmt"

// strSize is the wire size of a 9P string: a u16 length prefix plus the
// raw bytes, mirroring np.c's np_strsize / NPSTRLEN macros and
// droyo-styx's minSizeLUT string-size arithmetic.
func strSize(s string) int { return 2 + len(s) }

const qidSize = 1 + 4 + 8 // type + version + path

// bodySize returns the wire size of m's body, excluding the 7-byte frame
// header. One case per variant, mirroring np_create_*'s size computation
// in np.c before it calls buf_alloc.
func bodySize(m Message) (int, error) {
	switch m := m.(type) {
	case *Tversion:
		return 4 + strSize(m.Version), nil
	case *Rversion:
		return 4 + strSize(m.Version), nil
	case *Tauth:
		return 4 + strSize(m.Uname) + strSize(m.Aname) + 4, nil
	case *Rauth:
		return qidSize, nil
	case *Tattach:
		return 4 + 4 + strSize(m.Uname) + strSize(m.Aname) + 4, nil
	case *Rattach:
		return qidSize, nil
	case *Tflush:
		return 2, nil
	case *Rflush:
		return 0, nil
	case *Twalk:
		if len(m.Wnames) > MaxWElem {
			return 0, fmt.Errorf("p9: Twalk: %d wnames exceeds MaxWElem %d", len(m.Wnames), MaxWElem)
		}
		n := 4 + 4 + 2
		for _, w := range m.Wnames {
			n += strSize(w)
		}
		return n, nil
	case *Rwalk:
		if len(m.Wqids) > MaxWElem {
			return 0, fmt.Errorf("p9: Rwalk: %d wqids exceeds MaxWElem %d", len(m.Wqids), MaxWElem)
		}
		return 2 + len(m.Wqids)*qidSize, nil
	case *Tread:
		return 4 + 8 + 4, nil
	case *Rread:
		return 4 + len(m.Data), nil
	case *Twrite:
		return 4 + 8 + 4 + len(m.Data), nil
	case *Rwrite:
		return 4, nil
	case *Tclunk:
		return 4, nil
	case *Rclunk:
		return 0, nil
	case *Tremove:
		return 4, nil
	case *Rremove:
		return 0, nil
	case *Rlerror:
		return 4, nil
	case *Tstatfs:
		return 4, nil
	case *Rstatfs:
		return 4 + 4 + 8 + 8 + 8 + 8 + 8 + 8 + 4, nil
	case *Tlopen:
		return 4 + 4, nil
	case *Rlopen:
		return qidSize + 4, nil
	case *Tlcreate:
		return 4 + strSize(m.Name) + 4 + 4 + 4, nil
	case *Rlcreate:
		return qidSize + 4, nil
	case *Tsymlink:
		return 4 + strSize(m.Name) + strSize(m.Symtgt) + 4, nil
	case *Rsymlink:
		return qidSize, nil
	case *Tmknod:
		return 4 + strSize(m.Name) + 4 + 4 + 4 + 4, nil
	case *Rmknod:
		return qidSize, nil
	case *Trename:
		return 4 + 4 + strSize(m.Name), nil
	case *Rrename:
		return 0, nil
	case *Treadlink:
		return 4, nil
	case *Rreadlink:
		return strSize(m.Target), nil
	case *Tgetattr:
		return 4 + 8, nil
	case *Rgetattr:
		return 8 + qidSize + 4 + 4 + 4 + 8 + 8 + 8 + 8 + 8 + 8*8 + 8 + 8, nil
	case *Tsetattr:
		return 4 + 4 + 4 + 4 + 4 + 8 + 8 + 8 + 8 + 8, nil
	case *Rsetattr:
		return 0, nil
	case *Txattrwalk:
		return 4 + 4 + strSize(m.Name), nil
	case *Rxattrwalk:
		return 8, nil
	case *Txattrcreate:
		return 4 + strSize(m.Name) + 8 + 4, nil
	case *Rxattrcreate:
		return 0, nil
	case *Treaddir:
		return 4 + 8 + 4, nil
	case *Rreaddir:
		return 4 + len(m.Data), nil
	case *Tfsync:
		return 4, nil
	case *Rfsync:
		return 0, nil
	case *Tlock:
		return 4 + 1 + 4 + 8 + 8 + 4 + strSize(m.ClientID), nil
	case *Rlock:
		return 1, nil
	case *Tgetlock:
		return 4 + 1 + 8 + 8 + 4 + strSize(m.ClientID), nil
	case *Rgetlock:
		return 1 + 8 + 8 + 4 + strSize(m.ClientID), nil
	case *Tlink:
		return 4 + 4 + strSize(m.Name), nil
	case *Rlink:
		return 0, nil
	case *Tmkdir:
		return 4 + strSize(m.Name) + 4 + 4, nil
	case *Rmkdir:
		return qidSize, nil
	default:
		if f, ok := extraBodySize[m.Type()]; ok {
			return f(m)
		}
		return 0, fmt.Errorf("p9: Encode: unhandled message type %T", m)
	}
}

// putBody writes m's body fields (everything after the frame header) into
// c, mirroring the field order in the matching np_create_*/np_deserialize
// case of np.c.
func putBody(c *cursor, m Message) {
	switch m := m.(type) {
	case *Tversion:
		c.putUint32(m.Msize)
		c.putString(m.Version)
	case *Rversion:
		c.putUint32(m.Msize)
		c.putString(m.Version)
	case *Tauth:
		c.putUint32(m.Afid)
		c.putString(m.Uname)
		c.putString(m.Aname)
		c.putUint32(m.NUname)
	case *Rauth:
		c.putQid(m.Qid)
	case *Tattach:
		c.putUint32(m.Fid)
		c.putUint32(m.Afid)
		c.putString(m.Uname)
		c.putString(m.Aname)
		c.putUint32(m.NUname)
	case *Rattach:
		c.putQid(m.Qid)
	case *Tflush:
		c.putUint16(uint16(m.OldTag))
	case *Rflush:
	case *Twalk:
		c.putUint32(m.Fid)
		c.putUint32(m.NewFid)
		c.putUint16(uint16(len(m.Wnames)))
		for _, w := range m.Wnames {
			c.putString(w)
		}
	case *Rwalk:
		c.putUint16(uint16(len(m.Wqids)))
		for _, q := range m.Wqids {
			c.putQid(q)
		}
	case *Tread:
		c.putUint32(m.Fid)
		c.putUint64(m.Offset)
		c.putUint32(m.Count)
	case *Rread:
		c.putUint32(uint32(len(m.Data)))
		copy(c.alloc(len(m.Data)), m.Data)
	case *Twrite:
		c.putUint32(m.Fid)
		c.putUint64(m.Offset)
		c.putUint32(uint32(len(m.Data)))
		copy(c.alloc(len(m.Data)), m.Data)
	case *Rwrite:
		c.putUint32(m.Count)
	case *Tclunk:
		c.putUint32(m.Fid)
	case *Rclunk:
	case *Tremove:
		c.putUint32(m.Fid)
	case *Rremove:
	case *Rlerror:
		c.putUint32(m.Ecode)
	case *Tstatfs:
		c.putUint32(m.Fid)
	case *Rstatfs:
		c.putUint32(m.Type_)
		c.putUint32(m.Bsize)
		c.putUint64(m.Blocks)
		c.putUint64(m.Bfree)
		c.putUint64(m.Bavail)
		c.putUint64(m.Files)
		c.putUint64(m.Ffree)
		c.putUint64(m.Fsid)
		c.putUint32(m.Namelen)
	case *Tlopen:
		c.putUint32(m.Fid)
		c.putUint32(m.Mode)
	case *Rlopen:
		c.putQid(m.Qid)
		c.putUint32(m.Iounit)
	case *Tlcreate:
		// Correct field order (fid, name, flags, mode, gid); np.c's
		// np_create_tlcreate mistakenly packs fid into the flags/mode/gid
		// slots instead of the caller's real arguments. Not reproduced
		// here per the resolved open question.
		c.putUint32(m.Fid)
		c.putString(m.Name)
		c.putUint32(m.Flags)
		c.putUint32(m.Mode)
		c.putUint32(m.Gid)
	case *Rlcreate:
		c.putQid(m.Qid)
		c.putUint32(m.Iounit)
	case *Tsymlink:
		c.putUint32(m.Fid)
		c.putString(m.Name)
		c.putString(m.Symtgt)
		c.putUint32(m.Gid)
	case *Rsymlink:
		c.putQid(m.Qid)
	case *Tmknod:
		c.putUint32(m.Fid)
		c.putString(m.Name)
		c.putUint32(m.Mode)
		c.putUint32(m.Major)
		c.putUint32(m.Minor)
		c.putUint32(m.Gid)
	case *Rmknod:
		c.putQid(m.Qid)
	case *Trename:
		c.putUint32(m.Fid)
		c.putUint32(m.Dfid)
		c.putString(m.Name)
	case *Rrename:
	case *Treadlink:
		c.putUint32(m.Fid)
	case *Rreadlink:
		c.putString(m.Target)
	case *Tgetattr:
		c.putUint32(m.Fid)
		c.putUint64(m.RequestMask)
	case *Rgetattr:
		c.putUint64(m.Valid)
		c.putQid(m.Qid)
		c.putUint32(m.Mode)
		c.putUint32(m.Uid)
		c.putUint32(m.Gid)
		c.putUint64(m.Nlink)
		c.putUint64(m.Rdev)
		c.putUint64(m.Size)
		c.putUint64(m.Blksize)
		c.putUint64(m.Blocks)
		c.putUint64(m.AtimeSec)
		c.putUint64(m.AtimeNsec)
		c.putUint64(m.MtimeSec)
		c.putUint64(m.MtimeNsec)
		c.putUint64(m.CtimeSec)
		c.putUint64(m.CtimeNsec)
		c.putUint64(m.BtimeSec)
		c.putUint64(m.BtimeNsec)
		c.putUint64(m.Gen)
		c.putUint64(m.DataVersion)
	case *Tsetattr:
		c.putUint32(m.Fid)
		c.putUint32(m.Valid)
		c.putUint32(m.Mode)
		c.putUint32(m.Uid)
		c.putUint32(m.Gid)
		c.putUint64(m.Size)
		c.putUint64(m.AtimeSec)
		c.putUint64(m.AtimeNsec)
		c.putUint64(m.MtimeSec)
		c.putUint64(m.MtimeNsec)
	case *Rsetattr:
	case *Txattrwalk:
		c.putUint32(m.Fid)
		c.putUint32(m.NewFid)
		c.putString(m.Name)
	case *Rxattrwalk:
		c.putUint64(m.Size)
	case *Txattrcreate:
		c.putUint32(m.Fid)
		c.putString(m.Name)
		c.putUint64(m.AttrSize)
		c.putUint32(m.Flags)
	case *Rxattrcreate:
	case *Treaddir:
		c.putUint32(m.Fid)
		c.putUint64(m.Offset)
		c.putUint32(m.Count)
	case *Rreaddir:
		c.putUint32(uint32(len(m.Data)))
		copy(c.alloc(len(m.Data)), m.Data)
	case *Tfsync:
		c.putUint32(m.Fid)
	case *Rfsync:
	case *Tlock:
		c.putUint32(m.Fid)
		c.putUint8(m.Type_)
		c.putUint32(m.Flags)
		c.putUint64(m.Start)
		c.putUint64(m.Length)
		c.putUint32(m.ProcID)
		c.putString(m.ClientID)
	case *Rlock:
		c.putUint8(m.Status)
	case *Tgetlock:
		c.putUint32(m.Fid)
		c.putUint8(m.Type_)
		c.putUint64(m.Start)
		c.putUint64(m.Length)
		c.putUint32(m.ProcID)
		c.putString(m.ClientID)
	case *Rgetlock:
		c.putUint8(m.Type_)
		c.putUint64(m.Start)
		c.putUint64(m.Length)
		c.putUint32(m.ProcID)
		c.putString(m.ClientID)
	case *Tlink:
		c.putUint32(m.Dfid)
		c.putUint32(m.Fid)
		c.putString(m.Name)
	case *Rlink:
	case *Tmkdir:
		c.putUint32(m.Fid)
		c.putString(m.Name)
		c.putUint32(m.Mode)
		c.putUint32(m.Gid)
	case *Rmkdir:
		c.putQid(m.Qid)
	default:
		if f, ok := extraPutBody[m.Type()]; ok {
			f(c, m)
		}
	}
}

// Encode serializes m into a complete wire frame: size[4] type[1] tag[2]
// followed by its body. Mirrors np_create_*'s alloc-then-pack shape, but
// collapsed into one generic entry point since every variant now shares
// the cursor-based put helpers.
func Encode(m Message) ([]byte, error) {
	bsz, err := bodySize(m)
	if err != nil {
		return nil, err
	}
	total := frameHeaderSize + bsz
	buf := make([]byte, total)

	c := newCursor(buf)
	c.putUint32(uint32(total))
	c.putUint8(uint8(m.Type()))
	c.putUint16(uint16(m.GetTag()))
	putBody(c, m)

	if c.overflow {
		return nil, fmt.Errorf("p9: Encode: %s: size computation mismatch", m.Type())
	}
	return buf, nil
}
