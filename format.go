// Package seqio provides a single Reader/Writer skeleton over the VCF and
// BCF format handlers, dispatching on an explicit Format or a guess from
// the file extension. GuessFormat also recognizes FASTA, FASTQ, and BED
// extensions, but Reader and Writer reject those formats.
package seqio

import (
	"fmt"
	"strings"

	"v.io/x/lib/vlog"
)

// Format identifies which handler a Reader/Writer dispatches to.
type Format int

const (
	// Unknown means the format could not be determined and must be given
	// explicitly.
	Unknown Format = iota
	FormatVCF
	FormatBCF
	FormatFASTA
	FormatFASTQ
	FormatBED
)

func (f Format) String() string {
	switch f {
	case FormatVCF:
		return "vcf"
	case FormatBCF:
		return "bcf"
	case FormatFASTA:
		return "fasta"
	case FormatFASTQ:
		return "fastq"
	case FormatBED:
		return "bed"
	default:
		return "unknown"
	}
}

// GuessFormat returns the Format implied by path's suffix, stripping one
// trailing compression suffix first (".gz", ".bgz") so "variants.vcf.gz"
// is still recognized as VCF.
func GuessFormat(path string) Format {
	p := path
	for _, suf := range []string{".gz", ".bgz"} {
		if strings.HasSuffix(p, suf) {
			p = p[:len(p)-len(suf)]
			break
		}
	}
	switch {
	case strings.HasSuffix(p, ".vcf"):
		return FormatVCF
	case strings.HasSuffix(p, ".bcf"):
		return FormatBCF
	case strings.HasSuffix(p, ".fasta"), strings.HasSuffix(p, ".fa"), strings.HasSuffix(p, ".fna"):
		return FormatFASTA
	case strings.HasSuffix(p, ".fastq"), strings.HasSuffix(p, ".fq"):
		return FormatFASTQ
	case strings.HasSuffix(p, ".bed"):
		return FormatBED
	default:
		vlog.VI(1).Infof("%v: could not guess format from extension", path)
		return Unknown
	}
}

func formatError(path string) error {
	return fmt.Errorf("seqio: could not determine format for %q; pass Format explicitly", path)
}
