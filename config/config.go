// Package config holds the tunables shared across the httpserver, transport
// and http/form packages: buffer sizes, limits and the defaults applied when a
// request doesn't state its own preferences (charset, form content-type).
package config

import (
	"time"

	"github.com/indigo-web/loop/http/mime"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	HeadersSpace struct {
		Default, Maximal int
	}

	BodyForm struct {
		// EntriesPrealloc is a seat count hint for form.Form; nothing in this
		// module reads it.
		EntriesPrealloc uint64
		// BufferPrealloc is an initial length hint for a buffer storing a whole
		// request body of unknown length (chunked); nothing in this module reads it.
		BufferPrealloc uint64
		// DefaultCoding is applied unless the request explicitly states a charset.
		DefaultCoding mime.Charset
		// DefaultContentType is applied to multipart parts lacking a Content-Type.
		DefaultContentType mime.MIME
	}

	NETWriteBufferSize struct {
		Default, Maximal int
	}

	URIRequestLineSize struct {
		Default, Maximal int
	}
)

type (
	URI struct {
		// RequestLineSize is a size hint for a request-line scratch buffer;
		// nothing in this module reads it.
		RequestLineSize URIRequestLineSize
		// ParamsPrealloc is a size hint for the query parameter table; nothing
		// in this module reads it.
		ParamsPrealloc int
	}

	Headers struct {
		Number HeadersNumber
		// Space is a size hint for the request headers section; nothing in this
		// module reads it.
		Space HeadersSpace
		// MaxEncodingTokens is a cap on stacked Content-Encoding tokens; nothing
		// in this module reads or enforces it.
		MaxEncodingTokens int
		// MaxAcceptEncodingTokens is a cap on the Accept-Encoding token count;
		// nothing in this module reads or enforces it.
		MaxAcceptEncodingTokens int
		// Default lists headers for responses; nothing in this module reads it,
		// so they are not added to responses.
		Default map[string]string
		// CookiesPrealloc sizes the cookie jar.
		CookiesPrealloc int
	}

	Body struct {
		// MaxSize is a body size limit; nothing in this module reads it (httpserver
		// caps request bodies by its Settings.MaxRequestBodySize).
		MaxSize uint64
		Form    BodyForm
	}

	NET struct {
		// ReadBufferSize is the per-connection read buffer size.
		ReadBufferSize int
		// ReadTimeout is an idle-connection timeout; nothing in this module reads it.
		ReadTimeout time.Duration
		// HeadersTimeout is a bound on how long the request line plus headers may
		// take to arrive; httpserver reads its Settings.HeadersTimeout instead.
		HeadersTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often Accept() is interrupted to
		// check for a pending shutdown.
		AcceptLoopInterruptPeriod time.Duration
		// WriteBufferSize is a size hint for a response assembly buffer; nothing in
		// this module reads it.
		WriteBufferSize NETWriteBufferSize
		// SmallBody is a compression threshold; nothing in this module reads it.
		SmallBody int64
		// MaxConnections is a cap on concurrently accepted connections (0 for no
		// cap); nothing in this module reads or enforces it.
		MaxConnections int
		// Backlog is the listen() backlog size hint. httpserver's Run sets it from
		// Settings.BacklogSize; the transport listeners do not read it.
		Backlog int
	}
)

// Config holds settings used by httpserver, transport and http/form, mainly
// restrictions, limits and pre-allocations. The fields read are
// Headers.Number.Default, Headers.CookiesPrealloc, Body.Form.DefaultCoding,
// Body.Form.DefaultContentType, NET.ReadBufferSize and
// NET.AcceptLoopInterruptPeriod; the others are carried but have no effect.
//
// Always derive from Default() and mutate the copy; never build a zero Config
// by hand, as most fields have no sane zero value.
type Config struct {
	URI     URI
	Headers Headers
	Body    Body
	NET     NET
}

// Default returns a well-balanced config. Maximal bounds are permissive.
func Default() *Config {
	return &Config{
		URI: URI{
			RequestLineSize: URIRequestLineSize{
				Default: 2 * 1024,
				Maximal: 16 * 1024,
			},
			ParamsPrealloc: 5,
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 50,
			},
			Space: HeadersSpace{
				Default: 1 * 1024,
				Maximal: 16 * 1024,
			},
			MaxEncodingTokens:       4,
			MaxAcceptEncodingTokens: 20,
			Default:                 make(map[string]string),
			CookiesPrealloc:         5,
		},
		Body: Body{
			MaxSize: 512 * 1024 * 1024,
			Form: BodyForm{
				EntriesPrealloc:    8,
				BufferPrealloc:     1024,
				DefaultCoding:      mime.UTF8,
				DefaultContentType: mime.Plain,
			},
		},
		NET: NET{
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               90 * time.Second,
			HeadersTimeout:            30 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			WriteBufferSize: NETWriteBufferSize{
				Default: 2 * 1024,
				Maximal: 64 * 1024,
			},
			SmallBody:      4 * 1024,
			MaxConnections: 0,
			Backlog:        1024,
		},
	}
}
