// Package keyvalue re-exports kv.Storage under the name several older
// call sites (query parameter tables, cookie jars) already expect.
package keyvalue

import "github.com/indigo-web/loop/kv"

type Storage = kv.Storage

var (
	New        = kv.New
	NewPreAlloc = kv.NewPrealloc
	NewFromMap  = kv.NewFromMap
)
