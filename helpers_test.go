package rendition

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/stretchr/testify/require"
)

type endCall struct {
	Body string
	Code int
}

// Records every call to End.
type recordingContext struct {
	path   string
	method string
	header http.Header
	calls  []endCall
}

func newRecordingContext(method string, path string) *recordingContext {
	return &recordingContext{
		path:   path,
		method: method,
		header: make(http.Header),
	}
}

func (self *recordingContext) End(body string, statusCode int) {
	self.calls = append(self.calls, endCall{
		Body: body,
		Code: statusCode,
	})
}

func (self *recordingContext) Path() string        { return self.path }
func (self *recordingContext) Method() string      { return self.method }
func (self *recordingContext) Header() http.Header { return self.header }

func (self *recordingContext) Last() endCall {
	if len(self.calls) == 0 {
		return endCall{}
	}

	return self.calls[len(self.calls)-1]
}

type logLine struct {
	Level   log.Level
	Message string
}

type captureLogger struct {
	lines []logLine
	lock  sync.Mutex
}

func (self *captureLogger) Log(level log.Level, args ...interface{}) {
	self.lock.Lock()
	defer self.lock.Unlock()

	self.lines = append(self.lines, logLine{
		Level:   level,
		Message: fmt.Sprint(args...),
	})
}

func (self *captureLogger) At(level log.Level) []string {
	self.lock.Lock()
	defer self.lock.Unlock()

	var out []string

	for _, line := range self.lines {
		if line.Level == level {
			out = append(out, line.Message)
		}
	}

	return out
}

// Write a file beneath dir and return its path.
func writeFile(t *testing.T, dir string, name string, content string) string {
	var path = filepath.Join(dir, name)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

// A renderer that ends the response with a fixed body and counts its invocations.
func staticRenderer(body string, calls *int) RenderFunc {
	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		if calls != nil {
			*calls++
		}

		ctx.End(body, http.StatusOK)
		return nil
	}
}

func failingRenderer(err error, calls *int) RenderFunc {
	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		if calls != nil {
			*calls++
		}

		return err
	}
}
