//go:build largeio

package main

import "github.com/sandia-minimega/ninep2000l/pkg/p9"

func init() {
	largeioDispatch = func(s *session, req p9.Message) (p9.Message, bool) {
		switch m := req.(type) {
		case *p9.Taread:
			s.mu.Lock()
			bound := s.msize
			s.mu.Unlock()
			count := m.Count
			if count > bound {
				count = bound
			}
			data, err := s.backend.Aread(m.Fid, m.Offset, count)
			if err != nil {
				return lerror(err), true
			}
			b := p9.AllocRaread(m.GetTag(), uint32(len(data)), m.Datacheck)
			copy(b.Data(), data)
			out, err := b.Finalize(len(data))
			if err != nil {
				return lerror(err), true
			}
			resp, _, err := p9.Decode(out)
			if err != nil {
				return lerror(err), true
			}
			return resp, true

		case *p9.Tawrite:
			n, err := s.backend.Awrite(m.Fid, m.Offset, m.Data)
			if err != nil {
				return lerror(err), true
			}
			return &p9.Rawrite{Count: n}, true
		}
		return nil, false
	}
}
