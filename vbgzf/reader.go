package vbgzf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// ErrNotBGZF is returned when the next bytes do not form a valid BGZF block
// header.
var ErrNotBGZF = fmt.Errorf("vbgzf: not a BGZF block")

// block is one decompressed BGZF block plus the virtual offset of its first
// byte (the offset's Block component is always 0 for a freshly-read block).
type block struct {
	voffset  Offset
	compSize int64
	data     []byte
	err      error
}

// Reader decompresses a BGZF stream, exposing both a plain io.Reader
// interface and the virtual offset of the next byte to be read. When
// threads > 1, (threads-1) additional goroutines decompress blocks in
// parallel; blocks are still delivered to Read in file order, matching the
// "no asynchronous callbacks, sequential byte stream observed by the caller"
// concurrency contract.
type Reader struct {
	src     io.Reader
	seeker  io.Seeker
	threads int

	// doneCh is the current generation's delivery channel (see start).
	// Read only ever touches the generation start last assigned here; Seek
	// calls start again to replace it wholesale rather than mutate it.
	doneCh chan *block

	cur     *block
	curOff  int
	voffset Offset // virtual offset of the next byte Read will return
	closed  bool
}

type rawBlock struct {
	voffset Offset
	payload []byte // compressed DEFLATE payload only
	isEOF   bool
	result  chan *block
}

// NewReader constructs a Reader over src, which must begin at a BGZF block
// boundary. If src also implements io.Seeker, Seek becomes available.
func NewReader(src io.Reader, threads int) (*Reader, error) {
	if threads < 1 {
		threads = 1
	}
	r := &Reader{
		src:     src,
		threads: threads,
	}
	if s, ok := src.(io.Seeker); ok {
		r.seeker = s
	}
	r.start()
	return r, nil
}

// start launches one generation of the decode pipeline: produceRaw,
// (threads-1) decodeLoop workers, and forward, wired together through a
// fresh, generation-local set of channels that start captures once and
// passes down explicitly as parameters. Every goroutine only ever touches
// the channel values it was launched with — never r.rawCh/r.orderCh/r.doneCh
// read anew on each statement — so a later Seek reassigning r.doneCh to a
// new generation cannot race with, or redirect sends from, a still-running
// previous generation's goroutines. (Seek's underlying source repositioning
// still requires the previous generation to no longer be reading from src;
// callers that seek promptly after construction, before the first Read,
// rely on produceRaw's first read naturally blocking until Seek's repositioned
// source has bytes, not on any cross-generation synchronization here.)
func (r *Reader) start() {
	rawCh := make(chan rawBlock, r.threads)
	orderCh := make(chan chan *block, r.threads)
	doneCh := make(chan *block, r.threads)
	r.doneCh = doneCh

	workers := r.threads - 1
	if workers < 1 {
		workers = 1
	}
	go r.produceRaw(rawCh, orderCh)
	for i := 0; i < workers; i++ {
		go r.decodeLoop(rawCh)
	}
	// forward delivers decoded blocks to doneCh strictly in the order
	// produceRaw emitted them, even though decodeLoop workers may finish
	// out of order: this is what keeps the byte stream sequential for the
	// caller while still letting decompression happen in parallel.
	go r.forward(orderCh, doneCh)
}

// produceRaw sequentially parses block headers from src (this cannot be
// parallelized: block boundaries are only known by reading headers in
// order) and hands each compressed payload, plus its dedicated result
// channel, to the decode workers via rawCh. The same result channels are
// pushed to orderCh in the same sequence, so forward can deliver results in
// order regardless of which worker finishes first.
func (r *Reader) produceRaw(rawCh chan<- rawBlock, orderCh chan<- chan *block) {
	defer close(rawCh)
	defer close(orderCh)
	br := bufio.NewReaderSize(r.src, 64*1024)
	var fileOff int64
	for {
		hdr, extra, err := readGzipHeader(br)
		if err == io.EOF {
			return
		}
		if err != nil {
			result := make(chan *block, 1)
			result <- &block{err: err}
			orderCh <- result
			return
		}
		bsize, ok := bcSubfield(extra)
		if !ok {
			result := make(chan *block, 1)
			result <- &block{err: ErrNotBGZF}
			orderCh <- result
			return
		}
		headerLen := int64(len(hdr) + len(extra))
		payloadLen := int64(bsize+1) - headerLen - 8
		if payloadLen < 0 {
			result := make(chan *block, 1)
			result <- &block{err: ErrNotBGZF}
			orderCh <- result
			return
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(br, payload); err != nil {
			result := make(chan *block, 1)
			result <- &block{err: err}
			orderCh <- result
			return
		}
		var trailer [8]byte
		if _, err := io.ReadFull(br, trailer[:]); err != nil {
			result := make(chan *block, 1)
			result <- &block{err: err}
			orderCh <- result
			return
		}
		isEOF := payloadLen == 2 // terminator's DEFLATE payload is the empty-block marker
		result := make(chan *block, 1)
		orderCh <- result
		rawCh <- rawBlock{voffset: Offset{File: fileOff}, payload: payload, isEOF: isEOF, result: result}
		fileOff += int64(bsize) + 1
		if isEOF {
			return
		}
	}
}

func (r *Reader) decodeLoop(rawCh <-chan rawBlock) {
	for rb := range rawCh {
		fr := flate.NewReader(bytesReader(rb.payload))
		data, err := io.ReadAll(fr)
		fr.Close()
		if rb.isEOF {
			data = nil
		}
		rb.result <- &block{voffset: rb.voffset, data: data, err: err}
	}
}

// forward drains orderCh, which enumerates result channels in file order,
// and republishes each one's single value onto doneCh once it arrives.
func (r *Reader) forward(orderCh <-chan chan *block, doneCh chan<- *block) {
	defer close(doneCh)
	for result := range orderCh {
		blk := <-result
		doneCh <- blk
		if blk.err != nil {
			return
		}
	}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for r.cur == nil || r.curOff >= len(r.cur.data) {
		blk, ok := <-r.doneCh
		if !ok || blk == nil {
			return 0, io.EOF
		}
		if blk.err != nil {
			return 0, blk.err
		}
		if len(blk.data) == 0 {
			// Terminator block: no payload, and produceRaw has stopped
			// after it, so the next receive will see doneCh closed.
			continue
		}
		r.cur = blk
		r.curOff = 0
		r.voffset = blk.voffset
	}
	n := copy(p, r.cur.data[r.curOff:])
	r.curOff += n
	r.voffset = Offset{File: r.cur.voffset.File, Block: uint16(r.curOff)}
	return n, nil
}

// VOffset returns the virtual offset of the next byte Read will return.
func (r *Reader) VOffset() Offset { return r.voffset }

// Seek repositions the stream at the given virtual offset. The underlying
// source must support io.Seeker and off.File must be the start of a BGZF
// block (the general seek contract enforced one layer up, in
// seqio/compress). start launches an entirely new generation of pipeline
// goroutines bound to their own channels (see start's doc comment), so any
// still-running goroutines from the generation this Seek replaces are
// harmlessly orphaned rather than racing on reassigned fields.
func (r *Reader) Seek(off Offset) error {
	if r.seeker == nil {
		return fmt.Errorf("vbgzf: underlying source does not support seeking")
	}
	if _, err := r.seeker.Seek(off.File, io.SeekStart); err != nil {
		return err
	}
	r.start()
	r.cur = nil
	r.curOff = 0
	r.voffset = off
	// Prime and discard off.Block bytes of the first block so VOffset tracks
	// the requested within-block position.
	if off.Block > 0 {
		discard := make([]byte, off.Block)
		if _, err := io.ReadFull(r, discard); err != nil {
			return err
		}
	}
	return nil
}

func readGzipHeader(br *bufio.Reader) (hdr []byte, extra []byte, err error) {
	var fixed [12]byte
	if _, err = io.ReadFull(br, fixed[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, nil, err
	}
	if fixed[0] != 0x1f || fixed[1] != 0x8b {
		return nil, nil, ErrNotBGZF
	}
	if fixed[3]&0x04 == 0 {
		return nil, nil, ErrNotBGZF
	}
	xlen := int(binary.LittleEndian.Uint16(fixed[10:12]))
	extra = make([]byte, xlen)
	if _, err = io.ReadFull(br, extra); err != nil {
		return nil, nil, err
	}
	return fixed[:], extra, nil
}

func bcSubfield(extra []byte) (bsize uint16, ok bool) {
	for i := 0; i+4 <= len(extra); {
		si1, si2 := extra[i], extra[i+1]
		slen := int(binary.LittleEndian.Uint16(extra[i+2 : i+4]))
		if si1 == 66 && si2 == 67 && slen == 2 && i+4+2 <= len(extra) {
			return binary.LittleEndian.Uint16(extra[i+4 : i+6]), true
		}
		i += 4 + slen
	}
	return 0, false
}

// Close releases the reader. It does not close the underlying source.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}

func bytesReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b []byte
	i int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}
