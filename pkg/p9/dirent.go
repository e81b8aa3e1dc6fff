package p9

// DirentSize returns the wire size of one Rreaddir entry for name,
// mirroring np_serialize_p9dirent's size arithmetic: qid[13] offset[8]
// type[1] name[s].
func DirentSize(name string) int {
	return qidSize + 8 + 1 + strSize(name)
}

// SerializeDirent packs one directory entry into the front of out,
// returning the number of bytes written, or 0 if out is too small to hold
// it (the caller is expected to stop filling an Rreaddir payload at that
// point, exactly as np_serialize_p9dirent signals "won't fit" to its
// caller in np.c).
func SerializeDirent(qid Qid, offset uint64, typ uint8, name string, out []byte) int {
	need := DirentSize(name)
	if len(out) < need {
		return 0
	}
	c := newCursor(out[:need])
	c.putQid(qid)
	c.putUint64(offset)
	c.putUint8(typ)
	c.putString(name)
	if c.overflow {
		return 0
	}
	return need
}

// Dirent is one decoded Rreaddir entry, returned by DecodeDirents.
type Dirent struct {
	Qid    Qid
	Offset uint64
	Type   uint8
	Name   string
}

// DecodeDirents unpacks every entry from a raw Rreaddir payload
// (Rreaddir.Data). Names are borrowed from data, matching Decode's
// zero-copy convention.
func DecodeDirents(data []byte) ([]Dirent, error) {
	c := newCursor(data)
	var ents []Dirent
	for c.remaining() > 0 {
		var d Dirent
		d.Qid = c.getQid()
		d.Offset = c.getUint64()
		d.Type = c.getUint8()
		d.Name = c.getString()
		if c.overflow {
			return nil, errShortDirent
		}
		ents = append(ents, d)
	}
	return ents, nil
}

var errShortDirent = direntError("p9: truncated dirent in Rreaddir payload")

type direntError string

func (e direntError) Error() string { return string(e) }
