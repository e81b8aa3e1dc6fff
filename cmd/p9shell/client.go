package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

// client is a minimal synchronous 9P2000.L client: one request in flight
// at a time, matching how cmd/p9shell's REPL only ever has one command
// outstanding. Shaped after pkg/miniclient's Conn (Dial, then call
// request/response methods one at a time over the same connection).
type client struct {
	conn  net.Conn
	mu    sync.Mutex
	tag   uint16
	msize uint32
	root  p9.Qid
}

func dial(addr string) (*client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &client{conn: conn, msize: 65536}

	rv, err := c.rpc(&p9.Tversion{Msize: c.msize, Version: "9P2000.L"})
	if err != nil {
		conn.Close()
		return nil, err
	}
	v, ok := rv.(*p9.Rversion)
	if !ok || v.Version != "9P2000.L" {
		conn.Close()
		return nil, fmt.Errorf("server does not speak 9P2000.L")
	}
	c.msize = v.Msize
	return c, nil
}

func (c *client) close() error { return c.conn.Close() }

func (c *client) nextTag() p9.Tag {
	c.tag++
	if c.tag == uint16(p9.NoTag) {
		c.tag++
	}
	return p9.Tag(c.tag)
}

// rpc sends req and waits for the matching reply. Only one call runs at a
// time (guarded by mu) since this client never pipelines requests.
func (c *client) rpc(req p9.Message) (p9.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.GetTag() == 0 {
		req.SetTag(c.nextTag())
	}
	out, err := p9.Encode(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(out); err != nil {
		return nil, err
	}

	frame, err := readFrame(c.conn)
	if err != nil {
		return nil, err
	}
	resp, _, err := p9.Decode(frame)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, io.ErrUnexpectedEOF
	}
	if e, ok := resp.(*p9.Rlerror); ok {
		return nil, fmt.Errorf("errno %d", e.Ecode)
	}
	return resp, nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size < 7 {
		return hdr[:], nil
	}
	buf := make([]byte, size)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, err
	}
	return buf, nil
}

// attach performs Tattach against fid 1 bound to the tree root and
// remembers the returned qid.
func (c *client) attach(uname string) error {
	r, err := c.rpc(&p9.Tattach{Fid: rootFid, Afid: p9.NoFID, Uname: uname, Aname: ""})
	if err != nil {
		return err
	}
	c.root = r.(*p9.Rattach).Qid
	return nil
}

const rootFid uint32 = 1
