// Package gzippedhttp compresses HTTP responses with gzip for clients
// that advertise support. Writers are pooled to keep allocation off the
// request path.
package gzippedhttp

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// CompressedResponseWriter wraps http.ResponseWriter and gzips the
// bodies of successful responses. Redirects and errors pass through
// uncompressed so their small bodies stay readable to any client.
type CompressedResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
	compressing bool
}

// NewCompressedResponseWriter takes a writer from the pool and resets it
// onto w.
func NewCompressedResponseWriter(w http.ResponseWriter) *CompressedResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	return &CompressedResponseWriter{
		w:  w,
		zw: zw,
	}
}

// Header returns the headers of the underlying response.
func (c *CompressedResponseWriter) Header() http.Header {
	return c.w.Header()
}

// WriteHeader decides whether the body will be compressed based on the
// status code, then writes the status line.
func (c *CompressedResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	if statusCode < http.StatusMultipleChoices {
		c.compressing = true
		c.w.Header().Set("Content-Encoding", "gzip")
	}
	c.w.WriteHeader(statusCode)
}

// Write sends p through the compressor when the response is being
// compressed, directly otherwise.
func (c *CompressedResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.compressing {
		return c.zw.Write(p)
	}
	return c.w.Write(p)
}

// Close flushes the compressor and returns it to the pool.
func (c *CompressedResponseWriter) Close() error {
	var err error
	if c.compressing {
		err = c.zw.Close()
	}
	gzipWriterPool.Put(c.zw)
	return err
}

// GzipResponse compresses the response when the client's Accept-Encoding
// allows it.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := NewCompressedResponseWriter(response)
		defer compressed.Close()

		h.ServeHTTP(compressed, request)
	}

	return http.HandlerFunc(middleware)
}
