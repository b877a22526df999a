// Package text holds device and parameter strings that arrive either as
// narrow code-page bytes or as wide UTF-16 code units, converting them to
// UTF-8 once on first use.
package text

import (
	"bytes"
	"encoding/binary"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Origin tags the encoding a Text was created from
type Origin int

const (
	// Narrow is single-byte text in a code page, or UTF-8 when no code page is set
	Narrow Origin = iota
	// Wide is UTF-16 little-endian text
	Wide
)

func (o Origin) String() string {
	if o == Wide {
		return "wide"
	}
	return "narrow"
}

// Text is an immutable string with its encoding origin. Conversion to UTF-8
// happens at most once.
type Text struct {
	origin   Origin
	narrow   []byte
	wide     []uint16
	codePage *charmap.Charmap
	owned    bool

	once sync.Once
	utf8 string
}

// FromNarrow wraps code-page bytes without copying them. A nil code page
// means the bytes are already UTF-8. Conversion stops at the first NUL.
func FromNarrow(b []byte, codePage *charmap.Charmap) *Text {
	return &Text{origin: Narrow, narrow: b, codePage: codePage}
}

// FromWide wraps UTF-16 code units without copying them. Conversion stops at
// the first NUL.
func FromWide(u []uint16) *Text {
	return &Text{origin: Wide, wide: u}
}

// FromUTF16LE decodes little-endian UTF-16 bytes into an owned wide Text
func FromUTF16LE(b []byte) *Text {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	t := FromWide(u)
	t.owned = true
	return t
}

// FromString returns an owned narrow Text holding s
func FromString(s string) *Text {
	return &Text{origin: Narrow, narrow: []byte(s), owned: true}
}

// Origin reports how the text was supplied
func (t *Text) Origin() Origin {
	return t.origin
}

// Owned reports whether the Text holds its own copy of the source buffer
func (t *Text) Owned() bool {
	return t.owned
}

// Own returns a Text that no longer aliases the caller's buffer
func (t *Text) Own() *Text {
	if t.owned {
		return t
	}
	c := &Text{origin: t.origin, codePage: t.codePage, owned: true}
	switch t.origin {
	case Wide:
		c.wide = append([]uint16(nil), t.wide...)
	default:
		c.narrow = append([]byte(nil), t.narrow...)
	}
	return c
}

// String returns the UTF-8 form, converting on first call
func (t *Text) String() string {
	if t == nil {
		return ""
	}
	t.once.Do(func() {
		t.utf8 = t.convert()
	})
	return t.utf8
}

// Empty reports whether the converted text is empty
func (t *Text) Empty() bool {
	return t.String() == ""
}

func (t *Text) convert() string {
	switch t.origin {
	case Wide:
		u := t.wide
		if i := indexZero16(u); i >= 0 {
			u = u[:i]
		}
		b := make([]byte, 2*len(u))
		for i, v := range u {
			binary.LittleEndian.PutUint16(b[2*i:], v)
		}
		return decode(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), b)
	default:
		b := t.narrow
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
		if t.codePage == nil {
			if utf8.Valid(b) {
				return string(b)
			}
			return strings.ToValidUTF8(string(b), "�")
		}
		return decode(t.codePage, b)
	}
}

func decode(enc encoding.Encoding, b []byte) string {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

func indexZero16(u []uint16) int {
	for i, v := range u {
		if v == 0 {
			return i
		}
	}
	return -1
}
