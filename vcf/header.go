// Package vcf implements the text VCF format handler: parsing a variant
// header and record stream out of, and serializing one into, VCF's
// line-oriented text encoding.
package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/variant"
)

// splitQuoteAware splits s on sep, except where sep occurs inside a
// double-quoted span — used only for structured meta-line attribute lists
// (##INFO=<...>), never for record-body tab splitting, since VCF forbids
// literal tabs inside a field.
func splitQuoteAware(s string, sep byte) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// parseMetaAttrs parses the ID=value,ID=value,... body of a structured
// meta-line, quote-aware, returning an ordered key/value list.
func parseMetaAttrs(body string) (keys []string, vals map[string]string) {
	vals = make(map[string]string)
	for _, part := range splitQuoteAware(body, ',') {
		kv := strings.SplitN(part, "=", 2)
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		val := ""
		if len(kv) == 2 {
			val = strings.Trim(kv[1], `"`)
		}
		keys = append(keys, key)
		vals[key] = val
	}
	return keys, vals
}

func parseFieldType(s string) variant.FieldType {
	switch s {
	case "Integer":
		return variant.TypeInteger
	case "Float":
		return variant.TypeFloat
	case "Character":
		return variant.TypeCharacter
	case "Flag":
		return variant.TypeFlag
	default:
		return variant.TypeString
	}
}

func fieldTypeString(t variant.FieldType) string {
	switch t {
	case variant.TypeInteger:
		return "Integer"
	case variant.TypeFloat:
		return "Float"
	case variant.TypeCharacter:
		return "Character"
	case variant.TypeFlag:
		return "Flag"
	default:
		return "String"
	}
}

func parseNumber(s string) variant.Number {
	switch s {
	case ".":
		return variant.Number{Variable: true}
	case "A":
		return variant.Number{PerAlt: true}
	case "R":
		return variant.Number{PerAllele: true}
	case "G":
		return variant.Number{PerGenotype: true}
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return variant.Number{Variable: true}
		}
		return variant.Number{Fixed: int32(n)}
	}
}

func numberString(n variant.Number) string {
	switch {
	case n.Variable:
		return "."
	case n.PerAlt:
		return "A"
	case n.PerAllele:
		return "R"
	case n.PerGenotype:
		return "G"
	default:
		return strconv.Itoa(int(n.Fixed))
	}
}

// parseHeaderMetaLine parses one "##KEY=VALUE" or "##KEY=<...>" line into
// the header's matching dictionary, or appends it to Extra verbatim if it
// is not one of INFO/FORMAT/FILTER/contig.
func parseHeaderMetaLine(h *variant.Header, line string) error {
	body := strings.TrimPrefix(line, "##")
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		h.Extra = append(h.Extra, line)
		return nil
	}
	key, val := body[:eq], body[eq+1:]
	if len(val) < 2 || val[0] != '<' || val[len(val)-1] != '>' {
		h.Extra = append(h.Extra, line)
		return nil
	}
	_, attrs := parseMetaAttrs(val[1 : len(val)-1])

	idx, hasIDX := 0, false
	if raw, ok := attrs["IDX"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return seqerr.E(seqerr.FormatError, line, fmt.Errorf("vcf: bad IDX attribute %q", raw))
		}
		idx, hasIDX = n, true
	}

	switch key {
	case "contig":
		length, _ := strconv.ParseInt(attrs["length"], 10, 64)
		return h.PushContig(variant.ContigMeta{ID: attrs["ID"], Length: length, IDX: idx, HasIDX: hasIDX})
	case "INFO", "FORMAT", "FILTER":
		meta := variant.FieldMeta{
			ID:          attrs["ID"],
			Type:        parseFieldType(attrs["Type"]),
			Number:      parseNumber(attrs["Number"]),
			Description: attrs["Description"],
			IDX:         idx,
			HasIDX:      hasIDX,
		}
		switch key {
		case "INFO":
			return h.AddInfo(meta)
		case "FORMAT":
			return h.AddFormat(meta)
		default:
			return h.AddFilter(meta)
		}
	default:
		h.Extra = append(h.Extra, line)
		return nil
	}
}

// parseColumnHeaderLine parses the "#CHROM POS ID ..." line, populating
// h.Samples from any columns after FORMAT.
func parseColumnHeaderLine(h *variant.Header, line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return seqerr.E(seqerr.FormatError, line, fmt.Errorf("vcf: column header has only %d columns", len(cols)))
	}
	if len(cols) > 9 {
		h.Samples = append(h.Samples, cols[9:]...)
	}
	return nil
}

// writeHeaderAttrs writes one structured INFO/FILTER/FORMAT meta-line,
// with an IDX= attribute when hasIDX or writeIDX is set.
func writeHeaderAttrs(sb *strings.Builder, kind string, id string, number variant.Number, typ variant.FieldType, desc string, idx int, hasIDX, writeIDX bool) {
	fmt.Fprintf(sb, "##%s=<ID=%s,Number=%s,Type=%s,Description=\"%s\"", kind, id, numberString(number), fieldTypeString(typ), desc)
	if hasIDX || writeIDX {
		fmt.Fprintf(sb, ",IDX=%d", idx)
	}
	sb.WriteString(">\n")
}

// ParseHeaderText parses a complete VCF header (meta-lines followed by the
// #CHROM column-header line) out of an already-buffered string, the form
// BCF embeds verbatim as its own header block.
func ParseHeaderText(text string) (*variant.Header, error) {
	h := variant.NewHeader()
	sawColumnHeader := false
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "##"):
			if err := parseHeaderMetaLine(h, line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "#"):
			if err := parseColumnHeaderLine(h, line); err != nil {
				return nil, err
			}
			sawColumnHeader = true
		default:
			return nil, seqerr.E(seqerr.FormatError, line, fmt.Errorf("vcf: unexpected line in header text"))
		}
	}
	if !sawColumnHeader {
		return nil, seqerr.E(seqerr.MissingHeader, "", fmt.Errorf("vcf: header text has no #CHROM line"))
	}
	return h, nil
}

// WriteHeader serializes h as VCF meta-lines followed by the column header
// line. writeIDX controls whether every dictionary entry's IDX= attribute
// is emitted; an entry that had an explicit IDX on read is written with one
// regardless, per the per-entry round-tripping rule.
func WriteHeader(sb *strings.Builder, h *variant.Header, writeIDX bool) {
	for _, c := range h.Contigs {
		fmt.Fprintf(sb, "##contig=<ID=%s,length=%d", c.ID, c.Length)
		if c.HasIDX || writeIDX {
			fmt.Fprintf(sb, ",IDX=%d", c.IDX)
		}
		sb.WriteString(">\n")
	}
	for _, f := range h.Infos {
		writeHeaderAttrs(sb, "INFO", f.ID, f.Number, f.Type, f.Description, f.IDX, f.HasIDX, writeIDX)
	}
	for _, f := range h.Filters {
		writeHeaderAttrs(sb, "FILTER", f.ID, f.Number, f.Type, f.Description, f.IDX, f.HasIDX, writeIDX)
	}
	for _, f := range h.Formats {
		writeHeaderAttrs(sb, "FORMAT", f.ID, f.Number, f.Type, f.Description, f.IDX, f.HasIDX, writeIDX)
	}
	for _, line := range h.Extra {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO")
	if len(h.Samples) > 0 {
		sb.WriteString("\tFORMAT")
		for _, s := range h.Samples {
			sb.WriteByte('\t')
			sb.WriteString(s)
		}
	}
	sb.WriteByte('\n')
}
