package eio

import (
	"encoding/base64"
	"strconv"
	"sync/atomic"
)

// Sid is an opaque session identifier, unique within a single server
// process.
type Sid string

// sidGenerator hands out collision-free Sids from a process-wide
// monotonic counter, base64-encoding its decimal form. The value carries
// no meaning to clients.
type sidGenerator struct {
	seq uint64
}

func (g *sidGenerator) generate() Sid {
	n := atomic.AddUint64(&g.seq, 1)
	return Sid(base64.StdEncoding.EncodeToString([]byte(strconv.FormatUint(n, 10))))
}
