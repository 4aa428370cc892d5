package variant

// InfoField is one resolved INFO key/value pair, in record order.
type InfoField struct {
	Key   string
	Value Value
}

// Record is the canonical, format-independent representation a VCF or BCF
// stream is parsed into (and a writer serializes from). Coordinates are
// always 1-based here, matching VCF's native convention — the library's
// invariant is that canonical records never carry 0-based positions; BCF's
// 0-based POS field is converted on the way in and out by the bcf codec.
type Record struct {
	Chrom string
	Pos   int64
	ID    []string
	Ref   string
	Alt   []string
	Qual  Value // KindFloat32; IsMissing() true for VCF's "."

	// Filter holds the resolved FILTER ids in record order. A record that
	// passed all filters has exactly one entry, "PASS"; a record whose
	// FILTER column was "." (not evaluated) has a nil slice.
	Filter []string

	Info []InfoField

	// Format lists the FORMAT keys in column order; Samples[i] holds one
	// Value per Format key for sample i, in the same order — the library's
	// canonical "by-field" layout (§4.E), already transposed out of VCF's
	// by-sample text layout.
	Format  []string
	Samples [][]Value
}

// End returns the last 1-based coordinate this record's reference allele
// covers, used by region-filtered reading's overlap test
// (rec.Pos < region.End && rec.End() >= region.Begin). An "END" INFO field,
// when present, overrides the REF-length-derived end (the structural
// variant convention).
func (r *Record) End() int64 {
	for _, f := range r.Info {
		if f.Key == "END" && f.Value.Kind() == KindInt32 && !f.Value.IsMissing() {
			return int64(f.Value.Int())
		}
	}
	refLen := int64(len(r.Ref))
	if refLen == 0 {
		refLen = 1
	}
	return r.Pos + refLen - 1
}

// InfoValue returns the value for key, and whether it was present.
func (r *Record) InfoValue(key string) (Value, bool) {
	for _, f := range r.Info {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// FormatValue returns the value for key for sample i, and whether both the
// key and the sample index are in range.
func (r *Record) FormatValue(sample int, key string) (Value, bool) {
	if sample < 0 || sample >= len(r.Samples) {
		return Value{}, false
	}
	for i, k := range r.Format {
		if k == key {
			if i >= len(r.Samples[sample]) {
				return Value{}, false
			}
			return r.Samples[sample][i], true
		}
	}
	return Value{}, false
}
