//go:build !integration

package routeros

import (
	"bufio"
	"bytes"
	"reflect"
	"testing"
)

func TestLengthEncoding(t *testing.T) {
	// Boundary values for each prefix width.
	cases := []struct {
		n     int
		width int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1FFFFF, 3},
		{0x200000, 4},
		{0xFFFFFFF, 4},
		{0x10000000, 5},
	}
	for _, tc := range cases {
		enc := encodeLength(tc.n)
		if len(enc) != tc.width {
			t.Errorf("encodeLength(%#x): expected %d bytes, got %d", tc.n, tc.width, len(enc))
		}
		dec, err := decodeLength(bufio.NewReader(bytes.NewReader(enc)))
		if err != nil {
			t.Errorf("decodeLength(%#x): %v", tc.n, err)
			continue
		}
		if dec != tc.n {
			t.Errorf("round trip %#x: got %#x", tc.n, dec)
		}
	}
}

func TestDecodeLengthRejectsReservedPrefix(t *testing.T) {
	// 0xF8 sets the reserved control bits without being the 5-byte marker.
	if _, err := decodeLength(bufio.NewReader(bytes.NewReader([]byte{0xF8}))); err == nil {
		t.Fatal("expected an error, but got nil")
	}
}

func TestSentenceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	words := []string{"/ip/hotspot/user/add", "=name=AA:BB:CC:DD:EE:FF", "=profile=pkg_P1"}
	if err := writeSentence(&buf, words); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := readSentence(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, words) {
		t.Errorf("round trip mismatch: %v != %v", got, words)
	}
}

func TestReadSentenceEmpty(t *testing.T) {
	got, err := readSentence(bufio.NewReader(bytes.NewReader([]byte{0x00})))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil words, got %v", got)
	}
}

func TestAttrs(t *testing.T) {
	words := []string{
		"=.id=*7",
		"=name=AA:BB:CC:DD:EE:FF",
		"=rate-limit=2M/2M",
		"=comment=a=b=c", // value containing '='
		".tag=4",         // API attribute word, not an attribute
		"not-an-attr",
	}
	got := attrs(words)
	want := map[string]string{
		".id":        "*7",
		"name":       "AA:BB:CC:DD:EE:FF",
		"rate-limit": "2M/2M",
		"comment":    "a=b=c",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("attrs mismatch: %v != %v", got, want)
	}
}
