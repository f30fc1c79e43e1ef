package rendition

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/maputil"
	"github.com/ghetzel/go-stockutil/stringutil"
	"github.com/ghetzel/go-stockutil/typeutil"
)

type RequestIdentFunc func(*http.Request) string

var DefaultContentType = `text/html; charset=utf-8`
var RequestIdentifierFunc RequestIdentFunc

const XRenditionRequest = `X-Rendition-Request`

// A Context is the host's view of a single in-flight render: the request being
// served and the means to terminate its response.
type Context interface {
	End(body string, statusCode int)
	Path() string
	Method() string
}

// Contexts that carry a context.Context expose it for tracing.
type stdContexter interface {
	Context() context.Context
}

func stdContext(ctx Context) context.Context {
	if sc, ok := ctx.(stdContexter); ok {
		if c := sc.Context(); c != nil {
			return c
		}
	}

	return context.Background()
}

// An HTTPContext binds a Context to an http.ResponseWriter.  Calls to End are
// buffered and the last one wins; the response is written by Flush.
type HTTPContext struct {
	DisableTimings bool
	wr             http.ResponseWriter
	req            *http.Request
	startedAt      time.Time
	statusCode     int
	body           string
	ended          bool
	flushed        bool
	bytesWritten   int64
	id             string
	lock           sync.Mutex
}

func NewHTTPContext(wr http.ResponseWriter, req *http.Request) *HTTPContext {
	var ctx = &HTTPContext{
		wr:        wr,
		req:       req,
		startedAt: time.Now(),
	}

	ctx.id = ctx.ID()
	ctx.Logf(log.DEBUG, "context: start (%s %v)", req.Method, req.URL)

	for kv := range maputil.M(req.Header).Iter(maputil.IterOptions{
		SortKeys: true,
	}) {
		ctx.Logf(log.DEBUG, "  % -32s %v", kv.K+`:`, kv.Value)
	}

	return ctx
}

// Return the unique request ID.
func (self *HTTPContext) ID() string {
	if self.id != `` {
		return self.id
	}

	// honor package-level custom identifier function
	if rifn := RequestIdentifierFunc; rifn != nil {
		if id := rifn(self.req); id != `` {
			return id
		}
	}

	// attempt to reuse existing tracing IDs seen in the wild
	if req := self.req; req != nil {
		if id := req.Header.Get(`traceparent`); id != `` {
			return id
		} else if id := req.Header.Get(`uber-trace-id`); id != `` {
			return id
		}
	}

	return stringutil.UUID().Base58()
}

func (self *HTTPContext) Path() string {
	return self.req.URL.Path
}

func (self *HTTPContext) Method() string {
	return self.req.Method
}

func (self *HTTPContext) Context() context.Context {
	return self.req.Context()
}

// Return the http.Request associated with this context.
func (self *HTTPContext) Request() *http.Request {
	return self.req
}

// Return the header set from the underlying http.ResponseWriter.
func (self *HTTPContext) Header() http.Header {
	return self.wr.Header()
}

// Terminate the response with the given body and status code.  Subsequent calls
// replace the pending response until Flush is called.
func (self *HTTPContext) End(body string, statusCode int) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if self.flushed {
		self.Logf(log.WARNING, "context: response already written, discarding HTTP %d", statusCode)
		return
	}

	self.body = body
	self.statusCode = statusCode
	self.ended = true
}

// Whether End has been called.
func (self *HTTPContext) Ended() bool {
	self.lock.Lock()
	defer self.lock.Unlock()

	return self.ended
}

// Return a usable HTTP status code for the response.
func (self *HTTPContext) Code() int {
	return typeutil.OrNInt(self.statusCode, http.StatusOK)
}

// Return the pending response body.
func (self *HTTPContext) Body() string {
	self.lock.Lock()
	defer self.lock.Unlock()

	return self.body
}

// Write the pending response to the underlying http.ResponseWriter.
func (self *HTTPContext) Flush() error {
	self.lock.Lock()
	defer self.lock.Unlock()

	if self.flushed {
		return nil
	}

	self.flushed = true

	var hdr = self.wr.Header()

	hdr.Set(XRenditionRequest, self.ID())

	if !self.DisableTimings {
		hdr.Set(`Server-Timing`, fmt.Sprintf(
			"render;desc=%q;dur=%.3f",
			`Render`,
			float64(time.Since(self.startedAt))/float64(time.Millisecond),
		))
	}

	if hdr.Get(`Content-Type`) == `` {
		if self.Code() >= http.StatusBadRequest && !strings.HasPrefix(self.body, `<`) {
			hdr.Set(`Content-Type`, `text/plain; charset=utf-8`)
		} else {
			hdr.Set(`Content-Type`, DefaultContentType)
		}
	}

	self.wr.WriteHeader(self.Code())

	var n, err = self.wr.Write([]byte(self.body))
	self.bytesWritten += int64(n)

	return err
}

// Mark the request as completed and log a summary of the response.
func (self *HTTPContext) Done() time.Duration {
	var took = time.Since(self.startedAt)
	var code = self.Code()

	self.Logf(
		log.DEBUG,
		"context: wrote response (HTTP %d %s; %s; took %v)",
		code,
		http.StatusText(code),
		humanize.Bytes(uint64(self.bytesWritten)),
		took.Round(time.Microsecond),
	)

	return took
}

func (self *HTTPContext) Logf(level log.Level, format string, args ...interface{}) {
	log.Logf(level, "%s ${cyan}│${reset} "+format, append([]interface{}{self.ID()}, args...)...)
}

func (self *HTTPContext) String() string {
	return fmt.Sprintf("%s %s", self.Method(), self.Path())
}
