package bcf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/variant"
	"github.com/grailbio/seqio/vcf"
)

var magic = [5]byte{'B', 'C', 'F', 2, 2}

var errEOF = errors.New("eof")

// Reader parses BCF's binary record stream. The wire format wraps a VCF
// text header in a small binary envelope: magic ‖ l_text:u32 ‖ text, then
// one l_shared ‖ l_indiv ‖ shared ‖ indiv record per call to Scan.
type Reader struct {
	r        io.Reader
	Header   *variant.Header
	err      error
	checksum *Checksum
}

// EnableChecksum turns on running-checksum accumulation over the raw
// l_shared‖l_indiv‖shared‖indiv bytes of every subsequent Scan, mirroring
// Writer.EnableChecksum so a round-trip test harness can compare the two
// sums (or check a Reader's sum against a Writer-sealed ".bcf.crc"
// sidecar via Checksum.VerifySidecarFile).
func (r *Reader) EnableChecksum() *Checksum {
	r.checksum = NewChecksum()
	return r.checksum
}

// NewReader reads and parses the BCF header from r.
func NewReader(r io.Reader) (*Reader, error) {
	var m [5]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "magic", err)
	}
	if m != magic {
		return nil, seqerr.E(seqerr.FormatError, "magic", fmt.Errorf("bcf: bad magic %v", m))
	}
	var lText uint32
	if err := binary.Read(r, binary.LittleEndian, &lText); err != nil {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "l_text", err)
	}
	text := make([]byte, lText)
	if _, err := io.ReadFull(r, text); err != nil {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "text", err)
	}
	h, err := vcf.ParseHeaderText(string(text))
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, Header: h}, nil
}

// Err returns the error that stopped the most recent Scan, or nil if Scan
// stopped only because the stream reached EOF.
func (r *Reader) Err() error {
	if r.err == errEOF {
		return nil
	}
	return r.err
}

// Scan decodes the next record into rec. See vcf.Reader.Scan's doc comment
// for why MarkInUse is deferred to the end of a successful decode rather
// than called up front.
func (r *Reader) Scan(rec *variant.Record) bool {
	if r.err != nil {
		return false
	}
	if err := r.Header.CheckReadable(); err != nil {
		r.err = err
		return false
	}

	var lShared, lIndiv uint32
	if err := binary.Read(r.r, binary.LittleEndian, &lShared); err != nil {
		if err == io.EOF {
			r.err = errEOF
		} else {
			r.err = seqerr.E(seqerr.UnexpectedEOF, "l_shared", err)
		}
		return false
	}
	if err := binary.Read(r.r, binary.LittleEndian, &lIndiv); err != nil {
		r.err = seqerr.E(seqerr.UnexpectedEOF, "l_indiv", err)
		return false
	}
	shared := make([]byte, lShared)
	if _, err := io.ReadFull(r.r, shared); err != nil {
		r.err = seqerr.E(seqerr.UnexpectedEOF, "shared", err)
		return false
	}
	indiv := make([]byte, lIndiv)
	if _, err := io.ReadFull(r.r, indiv); err != nil {
		r.err = seqerr.E(seqerr.UnexpectedEOF, "indiv", err)
		return false
	}
	if err := DecodeRecord(r.Header, shared, indiv, rec); err != nil {
		r.err = err
		return false
	}
	r.Header.MarkInUse()
	if r.checksum != nil {
		var prefix [8]byte
		binary.LittleEndian.PutUint32(prefix[:4], lShared)
		binary.LittleEndian.PutUint32(prefix[4:], lIndiv)
		buf := make([]byte, 0, len(prefix)+len(shared)+len(indiv))
		buf = append(buf, prefix[:]...)
		buf = append(buf, shared...)
		buf = append(buf, indiv...)
		r.checksum.Add(rec, buf)
	}
	return true
}
