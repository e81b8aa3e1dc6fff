//go:build largeio

package p9

import (
	"fmt"
	"hash/adler32"
)

// Taread/Raread/Tawrite/Rawrite are the optional large-I/O extension
// (HAVE_LARGEIO in np.c): a variant of read/write that can carry a
// datacheck byte selecting an Adler-32 trailer, letting a client verify a
// large transfer without a second round trip. Gated behind this build tag
// the same way np.c gates the feature behind a compile-time #if.
type Taread struct {
	header
	Fid       uint32
	Datacheck uint8
	Offset    uint64
	Count     uint32
	Rsize     uint32
}

func (*Taread) Type() MsgType { return msgTaread }

type Raread struct {
	header
	Data  []byte
	Check uint32
}

func (*Raread) Type() MsgType { return msgRaread }

type Tawrite struct {
	header
	Fid       uint32
	Datacheck uint8
	Offset    uint64
	Count     uint32
	Rsize     uint32
	Data      []byte
	Check     uint32
}

func (*Tawrite) Type() MsgType { return msgTawrite }

type Rawrite struct {
	header
	Count uint32
}

func (*Rawrite) Type() MsgType { return msgRawrite }

func init() {
	registerExtraMessage(msgTaread, "Taread",
		func(c *cursor) Message {
			m := &Taread{}
			m.Fid = c.getUint32()
			m.Datacheck = c.getUint8()
			m.Offset = c.getUint64()
			m.Count = c.getUint32()
			m.Rsize = c.getUint32()
			return m
		},
		func(msg Message) (int, error) {
			return 4 + 1 + 8 + 4 + 4, nil
		},
		func(c *cursor, msg Message) {
			m := msg.(*Taread)
			c.putUint32(m.Fid)
			c.putUint8(m.Datacheck)
			c.putUint64(m.Offset)
			c.putUint32(m.Count)
			c.putUint32(m.Rsize)
		},
	)

	registerExtraMessage(msgRaread, "Raread",
		func(c *cursor) Message {
			m := &Raread{}
			n := int(c.getUint32())
			m.Data = c.alloc(n)
			m.Check = c.getUint32()
			return m
		},
		func(msg Message) (int, error) {
			m := msg.(*Raread)
			return 4 + len(m.Data) + 4, nil
		},
		func(c *cursor, msg Message) {
			m := msg.(*Raread)
			c.putUint32(uint32(len(m.Data)))
			copy(c.alloc(len(m.Data)), m.Data)
			c.putUint32(m.Check)
		},
	)

	registerExtraMessage(msgTawrite, "Tawrite",
		func(c *cursor) Message {
			m := &Tawrite{}
			m.Fid = c.getUint32()
			m.Datacheck = c.getUint8()
			m.Offset = c.getUint64()
			m.Count = c.getUint32()
			m.Rsize = c.getUint32()
			m.Data = c.alloc(int(m.Rsize))
			m.Check = c.getUint32()
			return m
		},
		func(msg Message) (int, error) {
			m := msg.(*Tawrite)
			return 4 + 1 + 8 + 4 + 4 + len(m.Data) + 4, nil
		},
		func(c *cursor, msg Message) {
			m := msg.(*Tawrite)
			c.putUint32(m.Fid)
			c.putUint8(m.Datacheck)
			c.putUint64(m.Offset)
			c.putUint32(m.Count)
			c.putUint32(uint32(len(m.Data)))
			copy(c.alloc(len(m.Data)), m.Data)
			c.putUint32(m.Check)
		},
	)

	registerExtraMessage(msgRawrite, "Rawrite",
		func(c *cursor) Message {
			m := &Rawrite{}
			m.Count = c.getUint32()
			return m
		},
		func(msg Message) (int, error) {
			return 4, nil
		},
		func(c *cursor, msg Message) {
			m := msg.(*Rawrite)
			c.putUint32(m.Count)
		},
	)
}

// AreadBuilder is Raread's two-phase builder: like RreadBuilder, but
// Finalize also appends an Adler-32 checksum over the filled data when
// the request's datacheck byte asked for one (CheckAdler32). Go's
// hash/adler32.New() starts from the same RFC-1950 seed that np.c's
// np_finalize_raread gets from zlib's adler32(0, nil, 0), so no special
// seeding is needed beyond calling Write once.
type AreadBuilder struct {
	buf       []byte
	dataStart int
	datacheck uint8
}

func AllocRaread(tag Tag, count uint32, datacheck uint8) *AreadBuilder {
	trailer := 0
	if datacheck == CheckAdler32 {
		trailer = 4
	}
	buf := make([]byte, frameHeaderSize+4+int(count)+trailer)
	c := newCursor(buf)
	c.putUint32(uint32(len(buf)))
	c.putUint8(uint8(msgRaread))
	c.putUint16(uint16(tag))
	c.putUint32(count)
	return &AreadBuilder{buf: buf, dataStart: c.pos, datacheck: datacheck}
}

func (b *AreadBuilder) Data() []byte {
	end := len(b.buf)
	if b.datacheck == CheckAdler32 {
		end -= 4
	}
	return b.buf[b.dataStart:end]
}

func (b *AreadBuilder) Finalize(n int) ([]byte, error) {
	maxN := len(b.Data())
	if n < 0 || n > maxN {
		return nil, fmt.Errorf("p9: Raread.Finalize: count %d out of range", n)
	}
	total := b.dataStart + n
	if b.datacheck == CheckAdler32 {
		h := adler32.New()
		h.Write(b.buf[b.dataStart : b.dataStart+n])
		binaryPutUint32(b.buf[total:total+4], h.Sum32())
		total += 4
	}
	binaryPutUint32(b.buf[0:4], uint32(total))
	binaryPutUint32(b.buf[7:11], uint32(n))
	return b.buf[:total], nil
}
