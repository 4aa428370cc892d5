package bcf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"os"

	"github.com/blainsmith/seahash"
	"github.com/minio/highwayhash"

	"github.com/grailbio/seqio/variant"
)

// sidecarKey seals a .bcf.crc sidecar against accidental truncation or
// reordering; it only needs to be stable within one round-trip test run,
// not secret, so a fixed all-zero key is fine.
var sidecarKey = make([]byte, highwayhash.Size)

// Checksum accumulates a commutative digest over a stream of encoded BCF
// records, the same hashField-keyed-by-position idiom
// cmd/bio-pamtool/checksum.go uses for BAM records: each record's encoded
// bytes are hashed together with its chromosome and position, and the
// per-record digests are summed rather than concatenated, so the result is
// independent of record order but still changes if any record's position
// or content changes.
type Checksum struct {
	h   hash.Hash64
	sum uint64
}

// NewChecksum returns a Checksum ready to accumulate.
func NewChecksum() *Checksum {
	return &Checksum{h: seahash.New()}
}

// Add folds one record's encoded bytes into the running checksum.
func (c *Checksum) Add(rec *variant.Record, encoded []byte) {
	c.h.Reset()
	c.h.Write([]byte(rec.Chrom))
	var posBuf [8]byte
	binary.LittleEndian.PutUint64(posBuf[:], uint64(rec.Pos))
	c.h.Write(posBuf[:])
	c.h.Write(encoded)
	c.sum += c.h.Sum64()
}

// Sum64 returns the running digest.
func (c *Checksum) Sum64() uint64 { return c.sum }

// sidecarSize is the byte length of a sealed .bcf.crc payload: an 8-byte
// little-endian sum plus an 8-byte highwayhash-64 seal over it.
const sidecarSize = 16

// Seal returns the .bcf.crc sidecar payload: the little-endian running sum
// followed by a keyed highwayhash-64 of that sum, so a round-trip test
// harness can tell a corrupted sidecar file from a genuine checksum
// mismatch between two BCF encodings.
func (c *Checksum) Seal() ([]byte, error) {
	var sumBuf [8]byte
	binary.LittleEndian.PutUint64(sumBuf[:], c.sum)
	mac, err := highwayhash.New64(sidecarKey)
	if err != nil {
		return nil, err
	}
	mac.Write(sumBuf[:])
	payload := make([]byte, 0, sidecarSize)
	payload = append(payload, sumBuf[:]...)
	payload = mac.Sum(payload)
	return payload, nil
}

// WriteSidecarFile seals c and writes it to path, overwriting any existing
// file.
func (c *Checksum) WriteSidecarFile(path string) error {
	payload, err := c.Seal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0644)
}

// VerifySidecarFile reports whether path holds a sidecar matching c's
// current running sum.
func (c *Checksum) VerifySidecarFile(path string) (bool, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if len(payload) != sidecarSize {
		return false, fmt.Errorf("bcf: malformed .bcf.crc sidecar: want %d bytes, got %d", sidecarSize, len(payload))
	}
	want, err := c.Seal()
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, payload), nil
}
