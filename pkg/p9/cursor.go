package p9

import "encoding/binary"

// cursor is a bounded linear read/write head over a byte slice, ported
// from np.c's struct cbuf/buf_check_size/buf_put_*/buf_get_* family. A
// single sticky overflow flag collapses every bounds failure into one
// check at the end of a (de)serialization pass, so the individual put/get
// helpers never return an error themselves.
type cursor struct {
	buf      []byte
	pos      int
	overflow bool
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

// fits reports whether n more bytes can be read or written without
// passing the end of buf.
func (c *cursor) fits(n int) bool {
	if c.overflow {
		return false
	}
	if c.pos+n > len(c.buf) {
		c.overflow = true
		return false
	}
	return true
}

// alloc reserves n bytes for the caller to fill directly and returns that
// sub-slice, or nil if it would overflow.
func (c *cursor) alloc(n int) []byte {
	if !c.fits(n) {
		return nil
	}
	s := c.buf[c.pos : c.pos+n]
	c.pos += n
	return s
}

func (c *cursor) putUint8(v uint8) {
	if !c.fits(1) {
		return
	}
	c.buf[c.pos] = v
	c.pos++
}

func (c *cursor) putUint16(v uint16) {
	if !c.fits(2) {
		return
	}
	binary.LittleEndian.PutUint16(c.buf[c.pos:], v)
	c.pos += 2
}

func (c *cursor) putUint32(v uint32) {
	if !c.fits(4) {
		return
	}
	binary.LittleEndian.PutUint32(c.buf[c.pos:], v)
	c.pos += 4
}

func (c *cursor) putUint64(v uint64) {
	if !c.fits(8) {
		return
	}
	binary.LittleEndian.PutUint64(c.buf[c.pos:], v)
	c.pos += 8
}

// putString writes a u16 length prefix followed by the exact bytes of s;
// an empty string is encoded as len=0 with no trailing bytes.
func (c *cursor) putString(s string) {
	if !c.fits(2 + len(s)) {
		return
	}
	c.putUint16(uint16(len(s)))
	copy(c.buf[c.pos:], s)
	c.pos += len(s)
}

func (c *cursor) putQid(q Qid) {
	c.putUint8(q.Type)
	c.putUint32(q.Version)
	c.putUint64(q.Path)
}

func (c *cursor) getUint8() uint8 {
	if !c.fits(1) {
		return 0
	}
	v := c.buf[c.pos]
	c.pos++
	return v
}

func (c *cursor) getUint16() uint16 {
	if !c.fits(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v
}

func (c *cursor) getUint32() uint32 {
	if !c.fits(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) getUint64() uint64 {
	if !c.fits(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v
}

// getString reads a u16 length prefix and borrows the following bytes
// from the cursor's underlying buffer; the returned string shares memory
// with that buffer (no copy), matching np_deserialize's zero-copy Npstr.
func (c *cursor) getString() string {
	n := int(c.getUint16())
	if !c.fits(n) {
		return ""
	}
	s := string(c.buf[c.pos : c.pos+n])
	c.pos += n
	return s
}

func (c *cursor) getQid() Qid {
	var q Qid
	q.Type = c.getUint8()
	q.Version = c.getUint32()
	q.Path = c.getUint64()
	return q
}

// remaining reports how many unread bytes are left; Decode uses it to
// reject trailing bytes and DecodeDirents to loop until the payload is
// consumed.
func (c *cursor) remaining() int {
	if c.overflow {
		return 0
	}
	return len(c.buf) - c.pos
}
