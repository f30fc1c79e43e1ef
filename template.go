package rendition

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/ghetzel/rendition/internal"
)

// A RenderFunc converts a template and its data into a response, terminating it via
// ctx.End.  Returning an error hands control to the Dispatcher's error fallback.
type RenderFunc func(ctx Context, data map[string]interface{}, tmpl *Template) error

// A Template is a single named unit of renderable content bound to a RenderFunc.
type Template struct {
	Name string
	Path string
	Ext  string
	Dir  string
	Base string

	// Static data merged into the caller's data at render time.  Values here take
	// precedence.
	Data map[string]interface{}

	render      RenderFunc
	hasRenderer bool
	lock        sync.RWMutex
}

func newPathTemplate(name string, info internal.PathInfo) *Template {
	return &Template{
		Name: name,
		Path: info.Absolute,
		Ext:  info.Ext,
		Dir:  info.Dir,
		Base: info.Base,
	}
}

func newInlineTemplate(name string, fn RenderFunc) *Template {
	return &Template{
		Name:        name,
		render:      fn,
		hasRenderer: true,
	}
}

// Whether a renderer has been attached to this template.  Templates without one
// render a "please register" message.
func (self *Template) HasRenderer() bool {
	self.lock.RLock()
	defer self.lock.RUnlock()

	return self.hasRenderer
}

func (self *Template) setRenderer(fn RenderFunc) {
	self.lock.Lock()
	defer self.lock.Unlock()

	self.render = fn
	self.hasRenderer = (fn != nil)
}

// Invoke this template's renderer.
func (self *Template) Render(ctx Context, data map[string]interface{}) error {
	self.lock.RLock()
	var fn = self.render
	self.lock.RUnlock()

	if fn != nil {
		return fn(ctx, data, self)
	}

	return renderNotRegistered(ctx, data, self)
}

func (self *Template) String() string {
	if self.Path != `` {
		return fmt.Sprintf("%s (%s)", self.Name, self.Path)
	}

	return self.Name
}

func renderNotRegistered(ctx Context, _ map[string]interface{}, tmpl *Template) error {
	ctx.End(fmt.Sprintf("Please register the %s render.", tmpl.Ext), http.StatusInternalServerError)

	return fmt.Errorf("%w: %q", ErrRendererNotRegistered, tmpl.Ext)
}
