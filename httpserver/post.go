package httpserver

import (
	"errors"
	"strings"

	"github.com/indigo-web/loop/http/form"
	"github.com/indigo-web/loop/http/headers"
	"github.com/indigo-web/loop/http/method"
	"github.com/indigo-web/loop/internal/urlencoded"
	"github.com/indigo-web/loop/kv"
)

// ErrUnsupportedBody is returned when a request has BoundBody set with a
// nonzero length but Content-Type names neither recognized form coding,
// per §4.5's fallback clause.
var ErrUnsupportedBody = errors.New("unsupported request body")

var postMethods = map[Method]struct{}{
	method.POST:   {},
	method.PATCH:  {},
	method.PUT:    {},
	method.DELETE: {},
}

// decodePost implements §4.5: urlencoded and multipart bodies both land
// flattened into dst as (name, value) pairs.
func decodePost(req *Request, dst *kv.Storage) error {
	if _, ok := postMethods[req.Method]; !ok {
		return nil
	}

	switch {
	case req.Flags.Has(FlagUrlencodedForm):
		return decodeUrlencodedPost(req, dst)
	case req.Flags.Has(FlagMultipartForm):
		return decodeMultipartPost(req, dst)
	case req.Flags.Has(FlagBoundBody) && req.ContentLength > 0:
		return ErrUnsupportedBody
	default:
		return nil
	}
}

func decodeUrlencodedPost(req *Request, dst *kv.Storage) error {
	body, err := req.Body()
	if err != nil {
		return err
	}

	raw, err := body.ReadAll()
	if err != nil {
		return err
	}

	var buff []byte

	for _, pair := range strings.Split(string(raw), "&") {
		if len(pair) == 0 {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		if len(key) == 0 {
			continue
		}

		var decodedKey, decodedValue string

		decodedKey, buff, err = urlencoded.ExtendedDecodeString(key, buff)
		if err != nil {
			return err
		}

		decodedValue, buff, err = urlencoded.ExtendedDecodeString(value, buff)
		if err != nil {
			return err
		}

		if len(decodedKey) == 0 {
			continue
		}

		dst.Add(decodedKey, decodedValue)
	}

	return nil
}

func decodeMultipartPost(req *Request, dst *kv.Storage) error {
	boundary := headers.ParamOf(req.Headers.Value("Content-Type"), "boundary", "")
	if len(boundary) == 0 {
		return ErrUnsupportedBody
	}

	body, err := req.Body()
	if err != nil {
		return err
	}

	raw, err := body.ReadAll()
	if err != nil {
		return err
	}

	parsed, err := form.ParseMultipart(req.conn.server.settings.Config, raw, boundary)
	if err != nil {
		return err
	}

	for _, entry := range parsed {
		dst.Add(entry.Name, entry.Value)
	}

	return nil
}
