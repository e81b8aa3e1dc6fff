package p9

import "fmt"

// RreadBuilder is a two-phase Rread response: AllocRread reserves a
// frame sized for the caller's requested count, the caller fills as much
// of Data() as it actually read, and Finalize rewrites the frame's size
// and count fields to the true amount. Mirrors np_alloc_rread/
// np_set_rread_count in np.c, which likewise allocate for the maximum
// possible read before the filesystem backend reports how much it
// actually produced.
type RreadBuilder struct {
	buf       []byte
	dataStart int
}

// AllocRread reserves a frame able to hold up to count bytes of read data.
func AllocRread(tag Tag, count uint32) *RreadBuilder {
	buf := make([]byte, frameHeaderSize+4+int(count))
	c := newCursor(buf)
	c.putUint32(uint32(len(buf)))
	c.putUint8(uint8(msgRread))
	c.putUint16(uint16(tag))
	c.putUint32(count) // provisional; overwritten by Finalize
	return &RreadBuilder{buf: buf, dataStart: c.pos}
}

// Data returns the full reserved payload region for the caller to fill.
func (b *RreadBuilder) Data() []byte { return b.buf[b.dataStart:] }

// Finalize records that n bytes of Data() were actually filled and
// returns the resulting frame, truncated to its true size.
func (b *RreadBuilder) Finalize(n int) ([]byte, error) {
	if n < 0 || n > len(b.buf)-b.dataStart {
		return nil, fmt.Errorf("p9: Rread.Finalize: count %d out of range", n)
	}
	total := b.dataStart + n
	binaryPutUint32(b.buf[0:4], uint32(total))
	binaryPutUint32(b.buf[7:11], uint32(n))
	return b.buf[:total], nil
}

// binaryPutUint32 writes v as little-endian at the front of dst; a tiny
// helper so Finalize doesn't need to spin up a fresh cursor just to patch
// one already-allocated field.
func binaryPutUint32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

// RreaddirBuilder is the Treaddir analogue of RreadBuilder: the caller
// packs entries one at a time with SerializeDirent into Data() until it
// runs out of room or out of entries, then calls Finalize with the total
// bytes written. Mirrors np_create_rreaddir/np_finalize_rreaddir.
type RreaddirBuilder struct {
	buf       []byte
	dataStart int
}

// CreateRreaddir reserves a frame able to hold up to count bytes of
// packed directory entries.
func CreateRreaddir(tag Tag, count uint32) *RreaddirBuilder {
	buf := make([]byte, frameHeaderSize+4+int(count))
	c := newCursor(buf)
	c.putUint32(uint32(len(buf)))
	c.putUint8(uint8(msgRreaddir))
	c.putUint16(uint16(tag))
	c.putUint32(count)
	return &RreaddirBuilder{buf: buf, dataStart: c.pos}
}

func (b *RreaddirBuilder) Data() []byte { return b.buf[b.dataStart:] }

func (b *RreaddirBuilder) Finalize(n int) ([]byte, error) {
	if n < 0 || n > len(b.buf)-b.dataStart {
		return nil, fmt.Errorf("p9: Rreaddir.Finalize: count %d out of range", n)
	}
	total := b.dataStart + n
	binaryPutUint32(b.buf[0:4], uint32(total))
	binaryPutUint32(b.buf[7:11], uint32(n))
	return b.buf[:total], nil
}
