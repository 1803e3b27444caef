package protocol

import (
	"errors"
	"fmt"
)

// DefaultMaxBuffer bounds the bytes a Decoder holds while waiting for the
// rest of a sentence.
const DefaultMaxBuffer = 16 * 1024 * 1024

var ErrBufferOverflow = errors.New("protocol: receive buffer limit exceeded")

const (
	TagRe    = "!re"
	TagDone  = "!done"
	TagTrap  = "!trap"
	TagFatal = "!fatal"
)

// Sentence is an ordered list of words, the zero length terminator excluded.
type Sentence []string

// Tag returns the first word of the sentence, or "" when it is empty.
func (s Sentence) Tag() string {
	if len(s) == 0 {
		return ""
	}

	return s[0]
}

// Decoder turns a stream of bytes, delivered in arbitrary chunks, into
// sentences.
type Decoder struct {
	buf   []byte
	off   int
	words Sentence

	// pending counts the bytes of words already read into the open sentence
	pending int

	maxBuffer int
}

// NewDecoder returns a Decoder that fails once more than maxBuffer bytes are
// pending. A maxBuffer <= 0 means DefaultMaxBuffer.
func NewDecoder(maxBuffer int) *Decoder {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}

	return &Decoder{maxBuffer: maxBuffer}
}

// Write appends a chunk of inbound bytes. It never fails, limits are enforced
// by Next.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Next returns the next complete sentence. Empty sentences are skipped. When
// the buffered bytes do not hold a complete sentence it returns ErrNeedMore and
// keeps any words already read for the next call.
func (d *Decoder) Next() (Sentence, error) {
	for {
		word, size, err := TryReadWord(d.buf[d.off:])
		if errors.Is(err, ErrNeedMore) {
			d.compact()

			if err := d.checkPending(); err != nil {
				return nil, err
			}

			if n, _, lerr := DecodeLength(d.buf); lerr == nil && n > uint64(d.maxBuffer) {
				return nil, fmt.Errorf("word of %d bytes: %w", n, ErrBufferOverflow)
			}

			return nil, ErrNeedMore
		}

		if err != nil {
			return nil, err
		}

		d.off += size

		if word != "" {
			d.words = append(d.words, word)
			d.pending += size

			if err := d.checkPending(); err != nil {
				return nil, err
			}

			continue
		}

		sentence := d.words
		d.words = nil
		d.pending = 0

		if len(sentence) == 0 {
			continue
		}

		return sentence, nil
	}
}

func (d *Decoder) checkPending() error {
	if pending := len(d.buf) - d.off + d.pending; pending > d.maxBuffer {
		return fmt.Errorf("%d bytes pending: %w", pending, ErrBufferOverflow)
	}

	return nil
}

// Buffered returns the number of bytes received but not yet turned into words.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Reset drops all buffered bytes and partial sentences.
func (d *Decoder) Reset() {
	d.buf = nil
	d.off = 0
	d.words = nil
	d.pending = 0
}

func (d *Decoder) compact() {
	if d.off == 0 {
		return
	}

	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}

// Assembler groups sentences into replies. A reply is every sentence up to and
// including the first one tagged `!done`, or `!fatal` as no `!done` follows it.
type Assembler struct {
	dec *Decoder
	run []Sentence
}

func NewAssembler(maxBuffer int) *Assembler {
	return &Assembler{dec: NewDecoder(maxBuffer)}
}

// Feed consumes a chunk of inbound bytes and returns the replies it completed,
// in the order they arrived. Partial words, sentences and replies are carried
// over to the next call.
func (a *Assembler) Feed(chunk []byte) ([][]Sentence, error) {
	var replies [][]Sentence

	if _, err := a.dec.Write(chunk); err != nil {
		return replies, err
	}

	for {
		sentence, err := a.dec.Next()
		if errors.Is(err, ErrNeedMore) {
			return replies, nil
		}

		if err != nil {
			return replies, err
		}

		a.run = append(a.run, sentence)

		switch sentence.Tag() {
		case TagDone, TagFatal:
			replies = append(replies, a.run)
			a.run = nil
		}
	}
}

// Buffered returns the number of bytes waiting for the rest of a word.
func (a *Assembler) Buffered() int {
	return a.dec.Buffered()
}

// Reset drops everything accumulated so far.
func (a *Assembler) Reset() {
	a.dec.Reset()
	a.run = nil
}
