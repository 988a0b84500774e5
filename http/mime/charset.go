package mime

import "golang.org/x/text/encoding/htmlindex"

type Charset = string

const (
	UTF8   Charset = "utf8"
	UTF16  Charset = "utf16"
	UTF32  Charset = "utf32"
	ASCII  Charset = "ascii"
	CP1251 Charset = "cp1251"
	CP1252 Charset = "cp1252"
	// feel free to add more widespread charsets!
)

// htmlindexNames maps our own Charset spelling onto the canonical names
// htmlindex.Get expects (the WHATWG encoding labels).
var htmlindexNames = map[Charset]string{
	UTF8:   "utf-8",
	UTF16:  "utf-16",
	UTF32:  "utf-32",
	ASCII:  "windows-1252", // closest registered superset; ASCII itself isn't a WHATWG label
	CP1251: "windows-1251",
	CP1252: "windows-1252",
}

// Decode transcodes data from charset into UTF-8. UTF-8 input is returned
// unmodified. An unrecognized charset is returned as-is rather than erroring,
// since a client-declared charset we can't resolve shouldn't fail the whole
// request body.
func Decode(charset Charset, data string) (string, error) {
	if charset == UTF8 || len(data) == 0 {
		return data, nil
	}

	name, ok := htmlindexNames[charset]
	if !ok {
		return data, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return data, nil
	}

	decoded, err := enc.NewDecoder().String(data)
	if err != nil {
		return data, err
	}

	return decoded, nil
}
