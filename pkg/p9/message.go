package p9

// Message is implemented by every T/R variant. Generalizes the
// TversionPkt/RversionPkt/... family from Harvey-OS/ninep/protocol.go:
// there, each message got its own bare struct and a Dispatcher keyed off
// a separate MType field; here every variant additionally carries its own
// tag and knows its own wire id, so encode/decode can work generically
// over the interface instead of a type switch at every call site.
type Message interface {
	// Type returns the wire id of this message.
	Type() MsgType
	// GetTag returns the message's tag.
	GetTag() Tag
	// SetTag overwrites the message's tag (used after a message was built
	// with NoTag as a placeholder, e.g. during Tversion/Rversion).
	SetTag(Tag)
}

// header is embedded in every message body and supplies the Message
// interface's tag accessors.
type header struct {
	Tag Tag
}

func (h *header) GetTag() Tag   { return h.Tag }
func (h *header) SetTag(t Tag)  { h.Tag = t }

type Tversion struct {
	header
	Msize   uint32
	Version string
}

func (*Tversion) Type() MsgType { return msgTversion }

type Rversion struct {
	header
	Msize   uint32
	Version string
}

func (*Rversion) Type() MsgType { return msgRversion }

type Tauth struct {
	header
	Afid   uint32
	Uname  string
	Aname  string
	NUname uint32
}

func (*Tauth) Type() MsgType { return msgTauth }

type Rauth struct {
	header
	Qid Qid
}

func (*Rauth) Type() MsgType { return msgRauth }

type Tattach struct {
	header
	Fid    uint32
	Afid   uint32
	Uname  string
	Aname  string
	NUname uint32
}

func (*Tattach) Type() MsgType { return msgTattach }

type Rattach struct {
	header
	Qid Qid
}

func (*Rattach) Type() MsgType { return msgRattach }

type Tflush struct {
	header
	OldTag Tag
}

func (*Tflush) Type() MsgType { return msgTflush }

type Rflush struct{ header }

func (*Rflush) Type() MsgType { return msgRflush }

type Twalk struct {
	header
	Fid    uint32
	NewFid uint32
	Wnames []string
}

func (*Twalk) Type() MsgType { return msgTwalk }

type Rwalk struct {
	header
	Wqids []Qid
}

func (*Rwalk) Type() MsgType { return msgRwalk }

type Tread struct {
	header
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (*Tread) Type() MsgType { return msgTread }

// Rread borrows Data from the decoded input buffer (or, for a two-phase
// build, points into the builder's owned buffer). See twophase.go.
type Rread struct {
	header
	Data []byte
}

func (*Rread) Type() MsgType { return msgRread }

type Twrite struct {
	header
	Fid    uint32
	Offset uint64
	Data   []byte
}

func (*Twrite) Type() MsgType { return msgTwrite }

type Rwrite struct {
	header
	Count uint32
}

func (*Rwrite) Type() MsgType { return msgRwrite }

type Tclunk struct {
	header
	Fid uint32
}

func (*Tclunk) Type() MsgType { return msgTclunk }

type Rclunk struct{ header }

func (*Rclunk) Type() MsgType { return msgRclunk }

type Tremove struct {
	header
	Fid uint32
}

func (*Tremove) Type() MsgType { return msgTremove }

type Rremove struct{ header }

func (*Rremove) Type() MsgType { return msgRremove }

// Rlerror replaces the legacy Rerror in 9P2000.L: ecode is a Linux errno.
type Rlerror struct {
	header
	Ecode uint32
}

func (*Rlerror) Type() MsgType { return msgRlerror }

type Tstatfs struct {
	header
	Fid uint32
}

func (*Tstatfs) Type() MsgType { return msgTstatfs }

type Rstatfs struct {
	header
	Type_   uint32
	Bsize   uint32
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Fsid    uint64
	Namelen uint32
}

func (*Rstatfs) Type() MsgType { return msgRstatfs }

type Tlopen struct {
	header
	Fid  uint32
	Mode uint32
}

func (*Tlopen) Type() MsgType { return msgTlopen }

type Rlopen struct {
	header
	Qid    Qid
	Iounit uint32
}

func (*Rlopen) Type() MsgType { return msgRlopen }

type Tlcreate struct {
	header
	Fid   uint32
	Name  string
	Flags uint32
	Mode  uint32
	Gid   uint32
}

func (*Tlcreate) Type() MsgType { return msgTlcreate }

type Rlcreate struct {
	header
	Qid    Qid
	Iounit uint32
}

func (*Rlcreate) Type() MsgType { return msgRlcreate }

type Tsymlink struct {
	header
	Fid    uint32
	Name   string
	Symtgt string
	Gid    uint32
}

func (*Tsymlink) Type() MsgType { return msgTsymlink }

type Rsymlink struct {
	header
	Qid Qid
}

func (*Rsymlink) Type() MsgType { return msgRsymlink }

type Tmknod struct {
	header
	Fid   uint32
	Name  string
	Mode  uint32
	Major uint32
	Minor uint32
	Gid   uint32
}

func (*Tmknod) Type() MsgType { return msgTmknod }

type Rmknod struct {
	header
	Qid Qid
}

func (*Rmknod) Type() MsgType { return msgRmknod }

type Trename struct {
	header
	Fid  uint32
	Dfid uint32
	Name string
}

func (*Trename) Type() MsgType { return msgTrename }

type Rrename struct{ header }

func (*Rrename) Type() MsgType { return msgRrename }

type Treadlink struct {
	header
	Fid uint32
}

func (*Treadlink) Type() MsgType { return msgTreadlink }

type Rreadlink struct {
	header
	Target string
}

func (*Rreadlink) Type() MsgType { return msgRreadlink }

type Tgetattr struct {
	header
	Fid         uint32
	RequestMask uint64
}

func (*Tgetattr) Type() MsgType { return msgTgetattr }

type Rgetattr struct {
	header
	Valid       uint64
	Qid         Qid
	Mode        uint32
	Uid         uint32
	Gid         uint32
	Nlink       uint64
	Rdev        uint64
	Size        uint64
	Blksize     uint64
	Blocks      uint64
	AtimeSec    uint64
	AtimeNsec   uint64
	MtimeSec    uint64
	MtimeNsec   uint64
	CtimeSec    uint64
	CtimeNsec   uint64
	BtimeSec    uint64
	BtimeNsec   uint64
	Gen         uint64
	DataVersion uint64
}

func (*Rgetattr) Type() MsgType { return msgRgetattr }

type Tsetattr struct {
	header
	Fid       uint32
	Valid     uint32
	Mode      uint32
	Uid       uint32
	Gid       uint32
	Size      uint64
	AtimeSec  uint64
	AtimeNsec uint64
	MtimeSec  uint64
	MtimeNsec uint64
}

func (*Tsetattr) Type() MsgType { return msgTsetattr }

type Rsetattr struct{ header }

func (*Rsetattr) Type() MsgType { return msgRsetattr }

// Txattrwalk/Rxattrwalk/Txattrcreate/Rxattrcreate are decoded and encoded
// in this revision (spec Open Question #2, resolved in favor of full
// support: libnpfs's own np_deserialize only asserts on these).
type Txattrwalk struct {
	header
	Fid    uint32
	NewFid uint32
	Name   string
}

func (*Txattrwalk) Type() MsgType { return msgTxattrwalk }

type Rxattrwalk struct {
	header
	Size uint64
}

func (*Rxattrwalk) Type() MsgType { return msgRxattrwalk }

type Txattrcreate struct {
	header
	Fid      uint32
	Name     string
	AttrSize uint64
	Flags    uint32
}

func (*Txattrcreate) Type() MsgType { return msgTxattrcreate }

type Rxattrcreate struct{ header }

func (*Rxattrcreate) Type() MsgType { return msgRxattrcreate }

type Treaddir struct {
	header
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (*Treaddir) Type() MsgType { return msgTreaddir }

// Rreaddir's Data is a packed sequence of dirents (see dirent.go).
type Rreaddir struct {
	header
	Data []byte
}

func (*Rreaddir) Type() MsgType { return msgRreaddir }

type Tfsync struct {
	header
	Fid uint32
}

func (*Tfsync) Type() MsgType { return msgTfsync }

type Rfsync struct{ header }

func (*Rfsync) Type() MsgType { return msgRfsync }

type Tlock struct {
	header
	Fid      uint32
	Type_    uint8
	Flags    uint32
	Start    uint64
	Length   uint64
	ProcID   uint32
	ClientID string
}

func (*Tlock) Type() MsgType { return msgTlock }

type Rlock struct {
	header
	Status uint8
}

func (*Rlock) Type() MsgType { return msgRlock }

type Tgetlock struct {
	header
	Fid      uint32
	Type_    uint8
	Start    uint64
	Length   uint64
	ProcID   uint32
	ClientID string
}

func (*Tgetlock) Type() MsgType { return msgTgetlock }

type Rgetlock struct {
	header
	Type_    uint8
	Start    uint64
	Length   uint64
	ProcID   uint32
	ClientID string
}

func (*Rgetlock) Type() MsgType { return msgRgetlock }

type Tlink struct {
	header
	Dfid uint32
	Fid  uint32
	Name string
}

func (*Tlink) Type() MsgType { return msgTlink }

type Rlink struct{ header }

func (*Rlink) Type() MsgType { return msgRlink }

type Tmkdir struct {
	header
	Fid  uint32
	Name string
	Mode uint32
	Gid  uint32
}

func (*Tmkdir) Type() MsgType { return msgTmkdir }

type Rmkdir struct {
	header
	Qid Qid
}

func (*Rmkdir) Type() MsgType { return msgRmkdir }

// StrdupOwned copies a decoded, buffer-borrowed wire string to an owned
// Go string the caller may keep past the lifetime of the decode buffer.
// Ported from np_strdup; in Go the copy is implicit in the conversion, so
// this exists mainly to make the "I am taking ownership now" point at
// call sites explicit, the way the C API forced callers to. Exported so
// callers outside this package can retain fields like Twalk.Wnames,
// Tlcreate.Name, or Rreadlink.Target past the next Decode call, per
// Decode's own zero-copy-borrow doc comment.
func StrdupOwned(s string) string {
	b := make([]byte, len(s))
	copy(b, s)
	return string(b)
}

// StrcmpCstr compares a wire string against a Go string for equality,
// ported from np_strcmp: equal iff the wire bytes equal the first n bytes
// of cs and cs has no more bytes after that.
func StrcmpCstr(s, cs string) int {
	n := len(s)
	if n > len(cs) {
		n = len(cs)
	}
	for i := 0; i < n; i++ {
		if s[i] != cs[i] {
			if s[i] < cs[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(s) < len(cs):
		return -1
	case len(s) > len(cs):
		return 1
	default:
		return 0
	}
}

// StrncmpCstr compares only the first n bytes, like np_strncmp: if the
// wire string is shorter than n, it falls back to StrcmpCstr's full
// comparison against cs.
func StrncmpCstr(s, cs string, n int) int {
	if len(s) >= n {
		if n > len(cs) {
			n = len(cs)
		}
		for i := 0; i < n; i++ {
			if s[i] != cs[i] {
				if s[i] < cs[i] {
					return -1
				}
				return 1
			}
		}
		return 0
	}
	return StrcmpCstr(s, cs)
}
