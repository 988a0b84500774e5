package headers

import (
	"github.com/indigo-web/loop/kv"
)

// Headers is the case-insensitive, order-preserving multimap backing both
// request and response header tables.
type Headers = *kv.Storage

// New returns an empty header table.
func New() Headers {
	return kv.New()
}

// NewPrealloc returns an empty header table with room for n pairs.
func NewPrealloc(n int) Headers {
	return kv.NewPrealloc(n)
}

// Canonical renders a header name as Title-Case-Hyphenated, the way outbound
// headers are written regardless of how the user set them.
func Canonical(name string) string {
	buf := make([]byte, len(name))
	upper := true

	for i := 0; i < len(name); i++ {
		c := name[i]

		switch {
		case c == '-':
			buf[i] = '-'
			upper = true
		case upper && c >= 'a' && c <= 'z':
			buf[i] = c - ('a' - 'A')
			upper = false
		case !upper && c >= 'A' && c <= 'Z':
			buf[i] = c + ('a' - 'A')
		default:
			buf[i] = c
			upper = false
		}
	}

	return string(buf)
}
