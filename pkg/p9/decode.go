package p9

import "fmt"

// Decode reads one complete frame from the front of b and returns the
// decoded message along with the number of bytes consumed. If b does not
// yet hold a complete frame, Decode returns (nil, 0, nil) so callers can
// buffer more input and retry, matching np_deserialize's "not enough yet"
// behavior in the diod read loop.
//
// Decoded strings and payload slices (Rread.Data, Rreaddir.Data, wnames,
// names, ...) are borrowed from b; callers that need to retain a message
// past the next Decode call must copy such fields themselves (see
// StrdupOwned).
func Decode(b []byte) (Message, int, error) {
	if len(b) < frameHeaderSize {
		return nil, 0, nil
	}

	hdr := newCursor(b[:frameHeaderSize])
	size := hdr.getUint32()
	typ := MsgType(hdr.getUint8())
	tag := Tag(hdr.getUint16())

	if size < frameHeaderSize {
		return nil, 0, fmt.Errorf("p9: Decode: frame size %d smaller than header", size)
	}
	if len(b) < int(size) {
		return nil, 0, nil
	}

	c := newCursor(b[frameHeaderSize:size])
	m, err := decodeBody(typ, c)
	if err != nil {
		return nil, 0, err
	}
	if c.overflow {
		return nil, 0, fmt.Errorf("p9: Decode: %s: short frame", typ)
	}
	if c.remaining() != 0 {
		return nil, 0, fmt.Errorf("p9: Decode: %s: %d trailing bytes", typ, c.remaining())
	}

	m.SetTag(tag)
	return m, int(size), nil
}

// decodeBody dispatches on typ and reads the body fields from c, one case
// per np_deserialize switch arm in np.c, in the same field order as
// putBody in encode.go.
func decodeBody(typ MsgType, c *cursor) (Message, error) {
	switch typ {
	case msgTversion:
		m := &Tversion{}
		m.Msize = c.getUint32()
		m.Version = c.getString()
		return m, nil
	case msgRversion:
		m := &Rversion{}
		m.Msize = c.getUint32()
		m.Version = c.getString()
		return m, nil
	case msgTauth:
		m := &Tauth{}
		m.Afid = c.getUint32()
		m.Uname = c.getString()
		m.Aname = c.getString()
		m.NUname = c.getUint32()
		return m, nil
	case msgRauth:
		m := &Rauth{}
		m.Qid = c.getQid()
		return m, nil
	case msgTattach:
		m := &Tattach{}
		m.Fid = c.getUint32()
		m.Afid = c.getUint32()
		m.Uname = c.getString()
		m.Aname = c.getString()
		m.NUname = c.getUint32()
		return m, nil
	case msgRattach:
		m := &Rattach{}
		m.Qid = c.getQid()
		return m, nil
	case msgTflush:
		m := &Tflush{}
		m.OldTag = Tag(c.getUint16())
		return m, nil
	case msgRflush:
		return &Rflush{}, nil
	case msgTwalk:
		m := &Twalk{}
		m.Fid = c.getUint32()
		m.NewFid = c.getUint32()
		n := int(c.getUint16())
		if n > MaxWElem {
			return nil, fmt.Errorf("p9: Decode: Twalk: %d wnames exceeds MaxWElem %d", n, MaxWElem)
		}
		m.Wnames = make([]string, n)
		for i := range m.Wnames {
			m.Wnames[i] = c.getString()
		}
		return m, nil
	case msgRwalk:
		m := &Rwalk{}
		n := int(c.getUint16())
		if n > MaxWElem {
			return nil, fmt.Errorf("p9: Decode: Rwalk: %d wqids exceeds MaxWElem %d", n, MaxWElem)
		}
		m.Wqids = make([]Qid, n)
		for i := range m.Wqids {
			m.Wqids[i] = c.getQid()
		}
		return m, nil
	case msgTread:
		m := &Tread{}
		m.Fid = c.getUint32()
		m.Offset = c.getUint64()
		m.Count = c.getUint32()
		return m, nil
	case msgRread:
		m := &Rread{}
		n := int(c.getUint32())
		m.Data = c.alloc(n)
		return m, nil
	case msgTwrite:
		m := &Twrite{}
		m.Fid = c.getUint32()
		m.Offset = c.getUint64()
		n := int(c.getUint32())
		m.Data = c.alloc(n)
		return m, nil
	case msgRwrite:
		m := &Rwrite{}
		m.Count = c.getUint32()
		return m, nil
	case msgTclunk:
		m := &Tclunk{}
		m.Fid = c.getUint32()
		return m, nil
	case msgRclunk:
		return &Rclunk{}, nil
	case msgTremove:
		m := &Tremove{}
		m.Fid = c.getUint32()
		return m, nil
	case msgRremove:
		return &Rremove{}, nil
	case msgRlerror:
		m := &Rlerror{}
		m.Ecode = c.getUint32()
		return m, nil
	case msgTstatfs:
		m := &Tstatfs{}
		m.Fid = c.getUint32()
		return m, nil
	case msgRstatfs:
		m := &Rstatfs{}
		m.Type_ = c.getUint32()
		m.Bsize = c.getUint32()
		m.Blocks = c.getUint64()
		m.Bfree = c.getUint64()
		m.Bavail = c.getUint64()
		m.Files = c.getUint64()
		m.Ffree = c.getUint64()
		m.Fsid = c.getUint64()
		m.Namelen = c.getUint32()
		return m, nil
	case msgTlopen:
		m := &Tlopen{}
		m.Fid = c.getUint32()
		m.Mode = c.getUint32()
		return m, nil
	case msgRlopen:
		m := &Rlopen{}
		m.Qid = c.getQid()
		m.Iounit = c.getUint32()
		return m, nil
	case msgTlcreate:
		m := &Tlcreate{}
		m.Fid = c.getUint32()
		m.Name = c.getString()
		m.Flags = c.getUint32()
		m.Mode = c.getUint32()
		m.Gid = c.getUint32()
		return m, nil
	case msgRlcreate:
		m := &Rlcreate{}
		m.Qid = c.getQid()
		m.Iounit = c.getUint32()
		return m, nil
	case msgTsymlink:
		m := &Tsymlink{}
		m.Fid = c.getUint32()
		m.Name = c.getString()
		m.Symtgt = c.getString()
		m.Gid = c.getUint32()
		return m, nil
	case msgRsymlink:
		m := &Rsymlink{}
		m.Qid = c.getQid()
		return m, nil
	case msgTmknod:
		m := &Tmknod{}
		m.Fid = c.getUint32()
		m.Name = c.getString()
		m.Mode = c.getUint32()
		m.Major = c.getUint32()
		m.Minor = c.getUint32()
		m.Gid = c.getUint32()
		return m, nil
	case msgRmknod:
		m := &Rmknod{}
		m.Qid = c.getQid()
		return m, nil
	case msgTrename:
		m := &Trename{}
		m.Fid = c.getUint32()
		m.Dfid = c.getUint32()
		m.Name = c.getString()
		return m, nil
	case msgRrename:
		return &Rrename{}, nil
	case msgTreadlink:
		m := &Treadlink{}
		m.Fid = c.getUint32()
		return m, nil
	case msgRreadlink:
		m := &Rreadlink{}
		m.Target = c.getString()
		return m, nil
	case msgTgetattr:
		m := &Tgetattr{}
		m.Fid = c.getUint32()
		m.RequestMask = c.getUint64()
		return m, nil
	case msgRgetattr:
		m := &Rgetattr{}
		m.Valid = c.getUint64()
		m.Qid = c.getQid()
		m.Mode = c.getUint32()
		m.Uid = c.getUint32()
		m.Gid = c.getUint32()
		m.Nlink = c.getUint64()
		m.Rdev = c.getUint64()
		m.Size = c.getUint64()
		m.Blksize = c.getUint64()
		m.Blocks = c.getUint64()
		m.AtimeSec = c.getUint64()
		m.AtimeNsec = c.getUint64()
		m.MtimeSec = c.getUint64()
		m.MtimeNsec = c.getUint64()
		m.CtimeSec = c.getUint64()
		m.CtimeNsec = c.getUint64()
		m.BtimeSec = c.getUint64()
		m.BtimeNsec = c.getUint64()
		m.Gen = c.getUint64()
		m.DataVersion = c.getUint64()
		return m, nil
	case msgTsetattr:
		m := &Tsetattr{}
		m.Fid = c.getUint32()
		m.Valid = c.getUint32()
		m.Mode = c.getUint32()
		m.Uid = c.getUint32()
		m.Gid = c.getUint32()
		m.Size = c.getUint64()
		m.AtimeSec = c.getUint64()
		m.AtimeNsec = c.getUint64()
		m.MtimeSec = c.getUint64()
		m.MtimeNsec = c.getUint64()
		return m, nil
	case msgRsetattr:
		return &Rsetattr{}, nil
	case msgTxattrwalk:
		m := &Txattrwalk{}
		m.Fid = c.getUint32()
		m.NewFid = c.getUint32()
		m.Name = c.getString()
		return m, nil
	case msgRxattrwalk:
		m := &Rxattrwalk{}
		m.Size = c.getUint64()
		return m, nil
	case msgTxattrcreate:
		m := &Txattrcreate{}
		m.Fid = c.getUint32()
		m.Name = c.getString()
		m.AttrSize = c.getUint64()
		m.Flags = c.getUint32()
		return m, nil
	case msgRxattrcreate:
		return &Rxattrcreate{}, nil
	case msgTreaddir:
		m := &Treaddir{}
		m.Fid = c.getUint32()
		m.Offset = c.getUint64()
		m.Count = c.getUint32()
		return m, nil
	case msgRreaddir:
		m := &Rreaddir{}
		n := int(c.getUint32())
		m.Data = c.alloc(n)
		return m, nil
	case msgTfsync:
		m := &Tfsync{}
		m.Fid = c.getUint32()
		return m, nil
	case msgRfsync:
		return &Rfsync{}, nil
	case msgTlock:
		m := &Tlock{}
		m.Fid = c.getUint32()
		m.Type_ = c.getUint8()
		m.Flags = c.getUint32()
		m.Start = c.getUint64()
		m.Length = c.getUint64()
		m.ProcID = c.getUint32()
		m.ClientID = c.getString()
		return m, nil
	case msgRlock:
		m := &Rlock{}
		m.Status = c.getUint8()
		return m, nil
	case msgTgetlock:
		m := &Tgetlock{}
		m.Fid = c.getUint32()
		m.Type_ = c.getUint8()
		m.Start = c.getUint64()
		m.Length = c.getUint64()
		m.ProcID = c.getUint32()
		m.ClientID = c.getString()
		return m, nil
	case msgRgetlock:
		m := &Rgetlock{}
		m.Type_ = c.getUint8()
		m.Start = c.getUint64()
		m.Length = c.getUint64()
		m.ProcID = c.getUint32()
		m.ClientID = c.getString()
		return m, nil
	case msgTlink:
		m := &Tlink{}
		m.Dfid = c.getUint32()
		m.Fid = c.getUint32()
		m.Name = c.getString()
		return m, nil
	case msgRlink:
		return &Rlink{}, nil
	case msgTmkdir:
		m := &Tmkdir{}
		m.Fid = c.getUint32()
		m.Name = c.getString()
		m.Mode = c.getUint32()
		m.Gid = c.getUint32()
		return m, nil
	case msgRmkdir:
		m := &Rmkdir{}
		m.Qid = c.getQid()
		return m, nil
	default:
		if f, ok := extraDecoders[typ]; ok {
			return f(c), nil
		}
		return nil, fmt.Errorf("p9: Decode: unknown message type %d", typ)
	}
}
