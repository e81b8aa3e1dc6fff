//go:build largeio

package memfs

// Aread/Awrite back the optional large-I/O extension (Taread/Tawrite):
// the backend semantics are identical to Read/Write, since the datacheck
// byte and checksum trailer are a wire-level concern pkg/p9's AreadBuilder
// handles entirely on its own; the tree doesn't need to know a request
// came in through the large-I/O path at all.

// Aread reads up to count bytes starting at offset from fid's node.
func (s *Server) Aread(fid uint32, offset uint64, count uint32) ([]byte, error) {
	return s.Read(fid, offset, count)
}

// Awrite writes data at offset into fid's node and returns the number of
// bytes written.
func (s *Server) Awrite(fid uint32, offset uint64, data []byte) (uint32, error) {
	return s.Write(fid, offset, data)
}
