// seqio-view dumps VCF/BCF records to stdout, optionally restricted to a
// region or a BED interval set, and optionally converting between VCF and
// BCF on the way out. It plays the same role bio-pamtool's "view"
// subcommand does for BAM, adapted to variant records.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/seqio"
	"github.com/grailbio/seqio/bed"
	"github.com/grailbio/seqio/variant"
)

var (
	region      = flag.String("region", "", "Restrict output to the specified region. Format as <contig>:<1-based first pos>-<last pos>, <contig>:<1-based pos>, or just <contig>")
	bedPath     = flag.String("bed", "", "Restrict output to the union of intervals in this BED file; mutually exclusive with -region")
	indexPath   = flag.String("index", "", "Tabix index path; defaults to <path>.tbi")
	allowLinear = flag.Bool("allow-linear-scan", false, "Fall back to a full linear scan if no tabix index is found for -region")
	headerOnly  = flag.Bool("header-only", false, "Print only the header")
	outFormat   = flag.String("out-format", "", "Output format (vcf or bcf); defaults to the input format")
	outPath     = flag.String("out", "", "Output path; defaults to stdout")
	threads     = flag.Int("threads", 4, "BGZF decompression/compression parallelism")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] path\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("exactly one input path required")
	}
	if *region != "" && *bedPath != "" {
		log.Fatalf("-region and -bed are mutually exclusive")
	}
	path := flag.Arg(0)

	opts := seqio.ReaderOpts{Threads: *threads}
	if *region != "" {
		chrom, begin, end, err := bed.ParseRegion(*region)
		if err != nil {
			log.Fatalf("-region: %v", err)
		}
		if end == -1 {
			end = 1 << 62
		}
		opts.Region = &seqio.Region{
			Chrom: chrom, Begin: begin + 1, End: end + 1,
			Index: *indexPath, AllowLinearScan: *allowLinear,
		}
	}
	if *bedPath != "" {
		f, err := os.Open(*bedPath)
		if err != nil {
			log.Fatalf("-bed: %v", err)
		}
		set, err := bed.NewSet(f)
		f.Close()
		if err != nil {
			log.Fatalf("-bed: %v", err)
		}
		opts.Filter = func(rec *variant.Record) bool {
			return set.Intersects(rec.Chrom, rec.Pos-1, rec.End())
		}
	}

	r, err := seqio.NewReaderPath(path, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer r.Close()

	wopts := seqio.WriterOpts{Format: r.Format(), Threads: *threads}
	if *outFormat != "" {
		switch *outFormat {
		case "vcf":
			wopts.Format = seqio.FormatVCF
		case "bcf":
			wopts.Format = seqio.FormatBCF
		default:
			log.Fatalf("-out-format: unsupported format %q", *outFormat)
		}
	}

	dst := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("-out: %v", err)
		}
		defer f.Close()
		dst = f
	}
	w, err := seqio.NewWriter(dst, r.Header(), wopts)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *headerOnly {
		if err := w.Close(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	var rec variant.Record
	for r.Scan(&rec) {
		if err := w.Write(&rec); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if err := r.Err(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := w.Close(); err != nil {
		log.Fatalf("%v", err)
	}
}
