// Package internal holds the raw query-string scanner used by query.Query,
// kept separate so the public package only exposes the lazy Query façade.
package internal

import (
	"github.com/indigo-web/loop/internal/keyvalue"
	"github.com/indigo-web/loop/internal/qparams"
	"github.com/indigo-web/loop/internal/uridecode"
)

// Parse splits raw (an already-unescaped-ampersand query string) into
// key/value pairs and adds each into dst, URL-decoding both sides.
func Parse(raw []byte, dst *keyvalue.Storage) error {
	var buff []byte

	_, err := qparams.Parse(raw, buff, qparams.Into(dst), decoder, "")
	return err
}

func decoder(src, dst []byte) ([]byte, []byte, error) {
	// a fresh buffer per call: decoded keys are kept as zero-copy strings, so the
	// memory behind one must not be reused for the next key or value
	decoded, err := uridecode.Decode(src, nil)
	if err != nil {
		return nil, dst, err
	}

	return decoded, dst, nil
}
