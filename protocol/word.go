package protocol

import (
	"bytes"
	"io"
)

// Terminal is the zero length word that ends every sentence.
var Terminal = []byte{0x00}

// EncodeWord returns the wire form of word.
func EncodeWord(word string) []byte {
	b := EncodeLength(uint64(len(word)))
	return append(b, word...)
}

// TryReadWord reads one word from the front of buf.
//
// When buf does not hold the whole word yet it returns ErrNeedMore and a size
// of zero. Nothing should be consumed in that case, the length prefix is
// decoded again on the next attempt.
func TryReadWord(buf []byte) (word string, size int, err error) {
	n, prefix, err := DecodeLength(buf)
	if err != nil {
		return "", 0, err
	}

	if uint64(len(buf)-prefix) < n {
		return "", 0, ErrNeedMore
	}

	end := prefix + int(n)
	return string(buf[prefix:end]), end, nil
}

// EncodeSentence returns the wire form of a sentence made of words.
func EncodeSentence(words ...string) []byte {
	var buf bytes.Buffer

	for _, word := range words {
		buf.Write(EncodeWord(word))
	}

	buf.Write(Terminal)
	return buf.Bytes()
}

// WriteSentence writes a whole sentence with a single Write call.
func WriteSentence(w io.Writer, words ...string) error {
	_, err := w.Write(EncodeSentence(words...))
	return err
}
