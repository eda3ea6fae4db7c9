package eio

import (
	"bufio"
	"bytes"

	"github.com/valyala/fasthttp"
)

// RequestKind is the result of classifying a new byte-stream's leading
// HTTP request.
type RequestKind int

const (
	RequestPollingOpen RequestKind = iota
	RequestPollingGet
	RequestPollingPost
	RequestWsUpgrade
)

// RequestType is the outcome of Classify.
type RequestType struct {
	Kind   RequestKind
	Sid    Sid
	HasSid bool
}

const maxPeekBytes = 1024

// Classify parses up to maxPeekBytes leading bytes of a new HTTP/1.x
// request and decides which transport path it belongs to. buf need not be
// a complete request; a truncated request simply fails to classify.
//
// ok is false when the request should be rejected outright (unsupported
// method, or an EIO query value other than "4") or when buf does not
// contain a complete request head.
func Classify(buf []byte) (RequestType, bool) {
	if len(buf) > maxPeekBytes {
		buf = buf[:maxPeekBytes]
	}

	var header fasthttp.RequestHeader
	br := bufio.NewReader(bytes.NewReader(buf))
	if err := header.Read(br); err != nil {
		return RequestType{}, false
	}

	method := string(header.Method())
	if method != "GET" && method != "POST" {
		return RequestType{}, false
	}

	var uri fasthttp.URI
	uri.Parse(nil, header.RequestURI())

	if eio := uri.QueryArgs().Peek("EIO"); len(eio) > 0 && string(eio) != "4" {
		return RequestType{}, false
	}

	var sid Sid
	hasSid := false
	if s := uri.QueryArgs().Peek("sid"); len(s) > 0 {
		sid = Sid(s)
		hasSid = true
	}

	if method == "GET" && len(header.Peek("Upgrade")) > 0 {
		return RequestType{Kind: RequestWsUpgrade, Sid: sid, HasSid: hasSid}, true
	}

	if method == "POST" {
		bodySid, ok := extractBodySid(buf, header.ContentLength())
		if !ok {
			return RequestType{}, false
		}
		return RequestType{Kind: RequestPollingPost, Sid: Sid(bodySid), HasSid: true}, true
	}

	if hasSid {
		return RequestType{Kind: RequestPollingGet, Sid: sid, HasSid: true}, true
	}

	return RequestType{Kind: RequestPollingOpen}, true
}

// extractBodySid pulls the request body out of buf, immediately following
// the blank line that terminates the header block. The body bytes
// themselves are the sid for a PollingPost request — this matches the
// original server's own behavior, not the real engine.io protocol (which
// carries sid in the query string on every transport). It is preserved
// here as a faithfully-reproduced quirk, not fixed.
func extractBodySid(buf []byte, contentLength int) (string, bool) {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx < 0 {
		return "", false
	}
	start := idx + 4
	if contentLength < 0 {
		contentLength = 0
	}
	end := start + contentLength
	if end > len(buf) {
		end = len(buf)
	}
	if start > len(buf) {
		start = len(buf)
	}
	return string(buf[start:end]), true
}
