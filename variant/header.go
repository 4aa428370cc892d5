package variant

import (
	"fmt"

	"github.com/grailbio/seqio/seqerr"
)

// Number describes the declared cardinality of an INFO/FORMAT field, as
// spelled in a VCF meta-line's Number= attribute.
type Number struct {
	// Fixed holds the count when Variable/PerAllele/PerAlt/PerGenotype are
	// all false; it is meaningless otherwise.
	Fixed int32

	// Variable is Number=. — an unspecified count.
	Variable bool
	// PerAllele is Number=R — one value per allele, including the reference.
	PerAllele bool
	// PerAlt is Number=A — one value per alternate allele.
	PerAlt bool
	// PerGenotype is Number=G — one value per possible genotype.
	PerGenotype bool
}

// FieldType is the declared value type of an INFO/FORMAT meta-line
// (Type=Integer/Float/Character/String/Flag).
type FieldType int

const (
	TypeInteger FieldType = iota
	TypeFloat
	TypeCharacter
	TypeString
	TypeFlag
)

// FieldMeta is one INFO, FORMAT, or FILTER dictionary entry.
type FieldMeta struct {
	ID          string
	Number      Number
	Type        FieldType
	Description string

	// IDX is the 0-based dictionary index this entry was declared at, and
	// whether that index was explicit on read (an "IDX=" attribute present
	// in the source meta-line). A value with HasIDX true keeps being
	// written with an explicit IDX= attribute even when the writer's
	// default is to omit it, so a downstream BCF consumer that cached the
	// numeric index is never silently invalidated by renumbering.
	IDX    int
	HasIDX bool
}

// ContigMeta is one contig (##contig) dictionary entry.
type ContigMeta struct {
	ID     string
	Length int64

	IDX    int
	HasIDX bool
}

// state tracks whether a Header's dictionaries are still safe to mutate.
// Once at least one record has been decoded against a header, mutating its
// dictionaries would invalidate field/contig indexes already cached in
// those records: the next mutation is still applied but invalidates the
// header, and any mutation after that is rejected (see checkMutable).
type state int

const (
	stateOpen state = iota
	stateInUse
	stateInvalidated
)

// Header holds the VCF/BCF metadata dictionaries: INFO, FORMAT, FILTER, and
// contig definitions, each with a forward id->index map and the reverse
// index->entry slice, plus free-text sample names and arbitrary meta-lines.
type Header struct {
	Infos   []FieldMeta
	Formats []FieldMeta
	Filters []FieldMeta
	Contigs []ContigMeta
	Samples []string

	// Extra holds meta-lines that are not one of the four typed
	// dictionaries above (##source, ##reference, arbitrary ##key=value).
	Extra []string

	infoIdx   map[string]int
	formatIdx map[string]int
	filterIdx map[string]int
	contigIdx map[string]int

	st state
}

// NewHeader returns an empty, mutable header.
func NewHeader() *Header {
	return &Header{
		infoIdx:   make(map[string]int),
		formatIdx: make(map[string]int),
		filterIdx: make(map[string]int),
		contigIdx: make(map[string]int),
	}
}

// MarkInUse transitions the header out of its initial open state once a
// record has finished decoding against it. It is idempotent, and callers
// (vcf.Reader.Scan, bcf.Reader.Scan) call it only after a record decodes
// successfully, not before: that lets the very first record amend the
// header with as many undeclared-reference placeholders as it needs
// (AddMissing) without tripping checkMutable, since no earlier record has
// relied on the header's prior shape yet. Any dictionary mutation that
// happens while the header is already InUse — i.e. triggered by a record
// after the first — does trip checkMutable, and permanently invalidates
// the header for every subsequent read (see CheckReadable).
func (h *Header) MarkInUse() {
	if h.st == stateOpen {
		h.st = stateInUse
	}
}

// checkMutable allows a dictionary mutation to go through while the header
// is still open (unused) or being invalidated by this very call, but
// rejects any further mutation once the header is already invalidated —
// that mutation would be amending the header on behalf of some later
// record, after an earlier one already relied on its prior shape.
func (h *Header) checkMutable() error {
	if h.st == stateInvalidated {
		return seqerr.E(seqerr.FormatError, "header", fmt.Errorf("variant: header dictionaries mutated after use"))
	}
	if h.st == stateInUse {
		h.st = stateInvalidated
	}
	return nil
}

// CheckReadable returns a format-error if the header was invalidated by a
// mutation made while decoding some earlier record: a header may amend
// itself once to admit the record that triggered the amendment, but no
// further record may be decoded against it afterward, since its cached
// dictionary positions are no longer guaranteed to match what earlier
// records saw.
func (h *Header) CheckReadable() error {
	if h.st == stateInvalidated {
		return seqerr.E(seqerr.FormatError, "header", fmt.Errorf("variant: header mutated mid-stream, further reads rejected"))
	}
	return nil
}

// rebuildIndexes recomputes every forward id->index map from the reverse
// slices. Called unconditionally after any dictionary mutation — there is
// no partial/lazy rebuild path.
func (h *Header) rebuildIndexes() {
	h.infoIdx = make(map[string]int, len(h.Infos))
	for i, f := range h.Infos {
		h.infoIdx[f.ID] = i
	}
	h.formatIdx = make(map[string]int, len(h.Formats))
	for i, f := range h.Formats {
		h.formatIdx[f.ID] = i
	}
	h.filterIdx = make(map[string]int, len(h.Filters))
	for i, f := range h.Filters {
		h.filterIdx[f.ID] = i
	}
	h.contigIdx = make(map[string]int, len(h.Contigs))
	for i, c := range h.Contigs {
		h.contigIdx[c.ID] = i
	}
}

// InfoIndex, FormatIndex, FilterIndex, and ContigIndex look an id up in the
// matching dictionary, reporting ok=false if it is not present.
func (h *Header) InfoIndex(id string) (int, bool)   { i, ok := h.infoIdx[id]; return i, ok }
func (h *Header) FormatIndex(id string) (int, bool) { i, ok := h.formatIdx[id]; return i, ok }
func (h *Header) FilterIndex(id string) (int, bool) { i, ok := h.filterIdx[id]; return i, ok }
func (h *Header) ContigIndex(id string) (int, bool) { i, ok := h.contigIdx[id]; return i, ok }

// AddInfo, AddFormat, and AddFilter append a new dictionary entry, assigning
// it the next free IDX unless meta already carries an explicit one, and
// rebuild the lookup indexes. Once the header has been used to decode a
// record, the first such call still succeeds but invalidates the header;
// they fail once the header is invalidated (see checkMutable).
func (h *Header) AddInfo(meta FieldMeta) error  { return h.addField(&h.Infos, h.infoIdx, meta) }
func (h *Header) AddFormat(meta FieldMeta) error { return h.addField(&h.Formats, h.formatIdx, meta) }
func (h *Header) AddFilter(meta FieldMeta) error { return h.addField(&h.Filters, h.filterIdx, meta) }

func (h *Header) addField(dict *[]FieldMeta, idx map[string]int, meta FieldMeta) error {
	if err := h.checkMutable(); err != nil {
		return err
	}
	if _, dup := idx[meta.ID]; dup {
		return seqerr.E(seqerr.FormatError, meta.ID, fmt.Errorf("variant: duplicate dictionary id %q", meta.ID))
	}
	if !meta.HasIDX {
		meta.IDX = len(*dict)
	}
	*dict = append(*dict, meta)
	h.rebuildIndexes()
	return nil
}

// PushContig appends a contig dictionary entry, the BCF-side counterpart of
// AddInfo/AddFormat/AddFilter for the contig table.
func (h *Header) PushContig(c ContigMeta) error {
	if err := h.checkMutable(); err != nil {
		return err
	}
	if _, dup := h.contigIdx[c.ID]; dup {
		return seqerr.E(seqerr.FormatError, c.ID, fmt.Errorf("variant: duplicate contig id %q", c.ID))
	}
	if !c.HasIDX {
		c.IDX = len(h.Contigs)
	}
	h.Contigs = append(h.Contigs, c)
	h.rebuildIndexes()
	return nil
}

// AddMissing inserts a placeholder dictionary entry for an id encountered
// in a record body that was never declared in a meta-line — BCF files
// produced by lenient writers sometimes omit a FILTER or INFO declaration
// the records themselves reference. The placeholder has Type=String,
// Number=Variable, and an empty description, and participates in the index
// like any other entry from then on.
func (h *Header) AddMissing(kind DictKind, id string) (int, error) {
	meta := FieldMeta{ID: id, Type: TypeString, Number: Number{Variable: true}}
	switch kind {
	case DictInfo:
		if i, ok := h.infoIdx[id]; ok {
			return i, nil
		}
		if err := h.AddInfo(meta); err != nil {
			return 0, err
		}
		return h.infoIdx[id], nil
	case DictFormat:
		if i, ok := h.formatIdx[id]; ok {
			return i, nil
		}
		if err := h.AddFormat(meta); err != nil {
			return 0, err
		}
		return h.formatIdx[id], nil
	case DictFilter:
		if i, ok := h.filterIdx[id]; ok {
			return i, nil
		}
		if err := h.AddFilter(meta); err != nil {
			return 0, err
		}
		return h.filterIdx[id], nil
	case DictContig:
		if i, ok := h.contigIdx[id]; ok {
			return i, nil
		}
		if err := h.PushContig(ContigMeta{ID: id}); err != nil {
			return 0, err
		}
		return h.contigIdx[id], nil
	default:
		return 0, seqerr.E(seqerr.Other, id, fmt.Errorf("variant: unknown dictionary kind %v", kind))
	}
}

// DictKind selects which of the four id-keyed dictionaries an operation
// applies to.
type DictKind int

const (
	DictInfo DictKind = iota
	DictFormat
	DictFilter
	DictContig
)
