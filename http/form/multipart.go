package form

import (
	"github.com/indigo-web/loop/config"
	"github.com/indigo-web/loop/http/form/internal"
)

// ParseMultipart decodes a multipart/form-data body given the boundary
// announced by the request's Content-Type parameter (without the leading
// "--"). cfg may be nil, in which case UTF-8/text-plain defaults apply.
func ParseMultipart(cfg *config.Config, data []byte, boundary string) (Form, error) {
	return internal.ParseMultipart(cfg, data, boundary)
}
