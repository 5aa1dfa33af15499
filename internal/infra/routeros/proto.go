package routeros

import (
	"bufio"
	"fmt"
	"io"
)

// Wire format: a sentence is a series of length-prefixed words terminated by a
// zero-length word. Word lengths use a variable 1-5 byte encoding where the
// high bits of the first byte select the width.

const maxWordLen = 0x10000000 // 4-byte encodable maximum; longer words use the 0xF0 form

func encodeLength(n int) []byte {
	switch {
	case n < 0x80:
		return []byte{byte(n)}
	case n < 0x4000:
		return []byte{byte(n>>8) | 0x80, byte(n)}
	case n < 0x200000:
		return []byte{byte(n>>16) | 0xC0, byte(n >> 8), byte(n)}
	case n < maxWordLen:
		return []byte{byte(n>>24) | 0xE0, byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{0xF0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

func decodeLength(r *bufio.Reader) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	var (
		n    int
		rest int
	)
	switch {
	case b&0x80 == 0x00:
		return int(b), nil
	case b&0xC0 == 0x80:
		n, rest = int(b&^0xC0), 1
	case b&0xE0 == 0xC0:
		n, rest = int(b&^0xE0), 2
	case b&0xF0 == 0xE0:
		n, rest = int(b&^0xF0), 3
	case b == 0xF0:
		n, rest = 0, 4
	default:
		return 0, fmt.Errorf("invalid length prefix byte 0x%02X", b)
	}
	for i := 0; i < rest; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		n = n<<8 | int(c)
	}
	return n, nil
}

func writeWord(w io.Writer, word string) error {
	if _, err := w.Write(encodeLength(len(word))); err != nil {
		return err
	}
	_, err := io.WriteString(w, word)
	return err
}

// writeSentence writes the words followed by the empty terminator word.
func writeSentence(w io.Writer, words []string) error {
	for _, word := range words {
		if err := writeWord(w, word); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0x00})
	return err
}

// readSentence reads words up to the empty terminator. An empty sentence
// (lone terminator) returns a nil slice.
func readSentence(r *bufio.Reader) ([]string, error) {
	var words []string
	for {
		n, err := decodeLength(r)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return words, nil
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		words = append(words, string(buf))
	}
}

// attrs flattens a reply sentence's "=key=value" words into a map. The first
// word (the reply type) and API attribute words (".tag=...") are skipped by
// the caller passing words[1:].
func attrs(words []string) map[string]string {
	m := make(map[string]string, len(words))
	for _, w := range words {
		if len(w) < 2 || w[0] != '=' {
			continue
		}
		rest := w[1:]
		for i := 0; i < len(rest); i++ {
			if rest[i] == '=' {
				m[rest[:i]] = rest[i+1:]
				break
			}
		}
	}
	return m
}
