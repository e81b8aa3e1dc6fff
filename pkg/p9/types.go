// Package p9 implements the wire-format codec for the 9P2000.L protocol:
// framing, the T/R message family, encode/decode, and the two-phase
// response builders for bulk I/O. The package is stateless and performs no
// I/O of its own; see cmd/p9srv and cmd/p9dump for transport.
package p9

// MsgType is the wire id of a 9P2000.L message, found at byte offset 4 of
// every frame.
type MsgType uint8

// Message type ids, from the 9P2000.L wire specification. Mirrors the
// const-block idiom of Harvey-OS/ninep/protocol.go's MType enumeration,
// extended with the .L ids np.c dispatches on.
const (
	msgRlerror MsgType = 7

	msgTstatfs MsgType = 8
	msgRstatfs MsgType = 9

	msgTlopen MsgType = 12
	msgRlopen MsgType = 13

	msgTlcreate MsgType = 14
	msgRlcreate MsgType = 15

	msgTsymlink MsgType = 16
	msgRsymlink MsgType = 17

	msgTmknod MsgType = 18
	msgRmknod MsgType = 19

	msgTrename MsgType = 20
	msgRrename MsgType = 21

	msgTreadlink MsgType = 22
	msgRreadlink MsgType = 23

	msgTgetattr MsgType = 24
	msgRgetattr MsgType = 25

	msgTsetattr MsgType = 26
	msgRsetattr MsgType = 27

	msgTxattrwalk MsgType = 30
	msgRxattrwalk MsgType = 31

	msgTxattrcreate MsgType = 32
	msgRxattrcreate MsgType = 33

	msgTreaddir MsgType = 40
	msgRreaddir MsgType = 41

	msgTfsync MsgType = 50
	msgRfsync MsgType = 51

	msgTlock MsgType = 52
	msgRlock MsgType = 53

	msgTgetlock MsgType = 54
	msgRgetlock MsgType = 55

	msgTlink MsgType = 70
	msgRlink MsgType = 71

	msgTmkdir MsgType = 72
	msgRmkdir MsgType = 73

	msgTversion MsgType = 100
	msgRversion MsgType = 101

	msgTauth MsgType = 102
	msgRauth MsgType = 103

	msgTattach MsgType = 104
	msgRattach MsgType = 105

	msgTflush MsgType = 108
	msgRflush MsgType = 109

	msgTwalk MsgType = 110
	msgRwalk MsgType = 111

	msgTread MsgType = 116
	msgRread MsgType = 117

	msgTwrite MsgType = 118
	msgRwrite MsgType = 119

	msgTclunk MsgType = 120
	msgRclunk MsgType = 121

	msgTremove MsgType = 122
	msgRremove MsgType = 123

	// Optional large-I/O extension (HAVE_LARGEIO in np.c), compiled in
	// only under the "largeio" build tag; see largeio.go. diod's own ids
	// for this extension were not present in the retrieved source, so
	// these four are assigned past the closed core enumeration rather
	// than guessed.
	msgTaread  MsgType = 128
	msgRaread  MsgType = 129
	msgTawrite MsgType = 130
	msgRawrite MsgType = 131
)

// extraDecoders/extraBodySize/extraPutBody let a build-tag-gated file
// (largeio.go) plug additional message variants into Decode/Encode
// without decode.go or encode.go needing to know about them at compile
// time when the tag is absent.
var (
	extraDecoders  = map[MsgType]func(*cursor) Message{}
	extraBodySize  = map[MsgType]func(Message) (int, error){}
	extraPutBody   = map[MsgType]func(*cursor, Message){}
)

func registerExtraMessage(t MsgType, name string, decode func(*cursor) Message, size func(Message) (int, error), put func(*cursor, Message)) {
	msgNames[t] = name
	extraDecoders[t] = decode
	extraBodySize[t] = size
	extraPutBody[t] = put
}

// msgNames is used by String() and by cmd/p9dump; it is deliberately a
// superset check against the closed id enumeration above, the same role
// protocol.go's RPCNames map plays for its message set.
var msgNames = map[MsgType]string{
	msgRlerror:      "Rlerror",
	msgTstatfs:      "Tstatfs",
	msgRstatfs:      "Rstatfs",
	msgTlopen:       "Tlopen",
	msgRlopen:       "Rlopen",
	msgTlcreate:     "Tlcreate",
	msgRlcreate:     "Rlcreate",
	msgTsymlink:     "Tsymlink",
	msgRsymlink:     "Rsymlink",
	msgTmknod:       "Tmknod",
	msgRmknod:       "Rmknod",
	msgTrename:      "Trename",
	msgRrename:      "Rrename",
	msgTreadlink:    "Treadlink",
	msgRreadlink:    "Rreadlink",
	msgTgetattr:     "Tgetattr",
	msgRgetattr:     "Rgetattr",
	msgTsetattr:     "Tsetattr",
	msgRsetattr:     "Rsetattr",
	msgTxattrwalk:   "Txattrwalk",
	msgRxattrwalk:   "Rxattrwalk",
	msgTxattrcreate: "Txattrcreate",
	msgRxattrcreate: "Rxattrcreate",
	msgTreaddir:     "Treaddir",
	msgRreaddir:     "Rreaddir",
	msgTfsync:       "Tfsync",
	msgRfsync:       "Rfsync",
	msgTlock:        "Tlock",
	msgRlock:        "Rlock",
	msgTgetlock:     "Tgetlock",
	msgRgetlock:     "Rgetlock",
	msgTlink:        "Tlink",
	msgRlink:        "Rlink",
	msgTmkdir:       "Tmkdir",
	msgRmkdir:       "Rmkdir",
	msgTversion:     "Tversion",
	msgRversion:     "Rversion",
	msgTauth:        "Tauth",
	msgRauth:        "Rauth",
	msgTattach:      "Tattach",
	msgRattach:      "Rattach",
	msgTflush:       "Tflush",
	msgRflush:       "Rflush",
	msgTwalk:        "Twalk",
	msgRwalk:        "Rwalk",
	msgTread:        "Tread",
	msgRread:        "Rread",
	msgTwrite:       "Twrite",
	msgRwrite:       "Rwrite",
	msgTclunk:       "Tclunk",
	msgRclunk:       "Rclunk",
	msgTremove:      "Tremove",
	msgRremove:      "Rremove",
}

func (t MsgType) String() string {
	if n, ok := msgNames[t]; ok {
		return n
	}
	return "Tunknown"
}

// Tag correlates a request with its reply; NoTag is reserved for version
// negotiation (Tversion/Rversion).
type Tag uint16

// NoTag is used only during version negotiation.
const NoTag Tag = 0xFFFF

// NoFID marks the absence of an auth fid in Tattach/Tauth.
const NoFID uint32 = 0xFFFFFFFF

// MaxWElem bounds the number of path elements in a Twalk request and the
// number of qids in the matching Rwalk.
const MaxWElem = 16

// Data-check values for the optional large-I/O extension (Taread/Raread).
const (
	CheckNone    uint8 = 0
	CheckAdler32 uint8 = 2
)

// QID types, high bits of a file's type/mode.
const (
	QTDIR     uint8 = 0x80
	QTAPPEND  uint8 = 0x40
	QTEXCL    uint8 = 0x20
	QTMOUNT   uint8 = 0x10
	QTAUTH    uint8 = 0x08
	QTTMP     uint8 = 0x04
	QTSYMLINK uint8 = 0x02
	QTLINK    uint8 = 0x01
	QTFILE    uint8 = 0x00
)

// Qid is the server-assigned 13-byte file-identity triple: type, version,
// path. Mirrors Harvey-OS/ninep/protocol.go's QID struct, field for field.
type Qid struct {
	Type    uint8
	Version uint32
	Path    uint64
}

// frameHeaderSize is the 7-byte size[4] type[1] tag[2] prefix common to
// every message.
const frameHeaderSize = 4 + 1 + 2

// Getattr/setattr valid-mask bits (P9_GETATTR_*/P9_SETATTR_*), used by
// callers to build the request_mask/valid fields; the codec itself treats
// both fields as opaque uint64/uint32 values (spec Non-goals: no semantic
// validation).
const (
	GetattrMode        uint64 = 0x00000001
	GetattrNlink       uint64 = 0x00000002
	GetattrUID         uint64 = 0x00000004
	GetattrGID         uint64 = 0x00000008
	GetattrRdev        uint64 = 0x00000010
	GetattrAtime       uint64 = 0x00000020
	GetattrMtime       uint64 = 0x00000040
	GetattrCtime       uint64 = 0x00000080
	GetattrIno         uint64 = 0x00000100
	GetattrSize        uint64 = 0x00000200
	GetattrBlocks      uint64 = 0x00000400
	GetattrBtime       uint64 = 0x00000800
	GetattrGen         uint64 = 0x00001000
	GetattrDataVersion uint64 = 0x00002000
	GetattrBasic              = GetattrMode | GetattrNlink | GetattrUID | GetattrGID | GetattrRdev |
		GetattrAtime | GetattrMtime | GetattrCtime | GetattrIno | GetattrSize | GetattrBlocks
	GetattrAll = GetattrBasic | GetattrBtime | GetattrGen | GetattrDataVersion

	SetattrMode  uint32 = 0x00000001
	SetattrUID   uint32 = 0x00000002
	SetattrGID   uint32 = 0x00000004
	SetattrSize  uint32 = 0x00000008
	SetattrAtime uint32 = 0x00000010
	SetattrMtime uint32 = 0x00000020
	SetattrCtime uint32 = 0x00000040
	SetattrAtimeSet uint32 = 0x00000080
	SetattrMtimeSet uint32 = 0x00000100
)

// Lock types for Tlock/Tgetlock (fcntl-style).
const (
	LockTypeRdlock uint8 = 0
	LockTypeWrlock uint8 = 1
	LockTypeUnlock uint8 = 2
)

// Tlock status codes returned in Rlock.
const (
	LockStatusSuccess uint8 = 0
	LockStatusBlocked uint8 = 1
	LockStatusError   uint8 = 2
	LockStatusGrace   uint8 = 3
)
