package compress

// Format identifies a detected or requested compression codec.
type Format int

const (
	// Auto means "detect from magic bytes" (read side) or "detect from
	// filename extension" (write side).
	Auto Format = iota
	// None means the stream is not compressed.
	None
	// GZ is plain gzip.
	GZ
	// BGZF is block-gzip, as used by BAM/tabix.
	BGZF
	// BZ2 is bzip2.
	BZ2
	// ZSTD is Zstandard.
	ZSTD
)

func (f Format) String() string {
	switch f {
	case None:
		return "none"
	case GZ:
		return "gz"
	case BGZF:
		return "bgzf"
	case BZ2:
		return "bz2"
	case ZSTD:
		return "zstd"
	default:
		return "auto"
	}
}

// magicPeekSize is the number of leading bytes inspected to classify a
// stream's compression format.
const magicPeekSize = 18

// detect classifies buf (the first magicPeekSize bytes of a stream, or
// fewer at EOF) against each codec's magic bytes, in the priority order
// bgzf, gz, bz2, zstd, none. bgzf and gz share the same 3-byte gzip magic;
// bgzf is distinguished by its FEXTRA flag and "BC" extra subfield.
func detect(buf []byte) Format {
	switch {
	case isBGZF(buf):
		return BGZF
	case isGZ(buf):
		return GZ
	case isBZ2(buf):
		return BZ2
	case isZstd(buf):
		return ZSTD
	default:
		return None
	}
}

func isGZ(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0x1f && buf[1] == 0x8b && buf[2] == 0x08
}

// isBGZF additionally requires the FEXTRA flag (byte 3, mask 0x04) and a
// "BC" extra subfield with length 2 immediately following the 2-byte XLEN,
// at the fixed offsets a single BGZF block's header always uses.
func isBGZF(buf []byte) bool {
	if !isGZ(buf) || len(buf) < magicPeekSize {
		return false
	}
	if buf[3]&0x04 == 0 {
		return false
	}
	// buf[10:12] is XLEN; a BGZF block's only extra subfield is "BC" with
	// SLEN=2, so bytes [12:16] are always "BC\x02\x00".
	return buf[12] == 'B' && buf[13] == 'C' && buf[14] == 0x02 && buf[15] == 0x00
}

func isBZ2(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0x42 && buf[1] == 0x5a && buf[2] == 0x68
}

func isZstd(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x28 && buf[1] == 0xb5 && buf[2] == 0x2f && buf[3] == 0xfd
}

// formatForExt guesses the output Format from a filename's extension, used
// as the default when a WriterOpts leaves Format at Auto.
func formatForExt(name string) Format {
	for _, c := range []struct {
		suffix string
		format Format
	}{
		{".bgzf", BGZF},
		{".bam", BGZF},
		{".gz", GZ},
		{".bz2", BZ2},
		{".zst", ZSTD},
	} {
		if hasSuffix(name, c.suffix) {
			return c.format
		}
	}
	return None
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
