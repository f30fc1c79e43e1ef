package rendition

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/ghetzel/go-stockutil/maputil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/rendition/internal"
)

// A RendererFactory builds a RenderFunc from a set of options.
type RendererFactory func(options map[string]interface{}) (RenderFunc, error)

var renderers = make(map[string]RendererFactory)
var rendererLock sync.RWMutex

func init() {
	RegisterRendererType(`gotemplate`, func(options map[string]interface{}) (RenderFunc, error) {
		return TemplateRenderer(nil), nil
	})

	RegisterRendererType(`markdown`, func(options map[string]interface{}) (RenderFunc, error) {
		return MarkdownRenderer(), nil
	})

	RegisterRendererType(`pongo2`, func(options map[string]interface{}) (RenderFunc, error) {
		return Pongo2Renderer(maputil.M(options).Get(`base_dir`).String())
	})

	RegisterRendererType(`highlight`, func(options map[string]interface{}) (RenderFunc, error) {
		return HighlightRenderer(maputil.M(options).Get(`style`, DefaultHighlightStyle).String()), nil
	})

	RegisterRendererType(`passthrough`, func(options map[string]interface{}) (RenderFunc, error) {
		return PassthroughRenderer(maputil.M(options).Get(`content_type`).String()), nil
	})
}

// Make a named renderer type available to BuiltinRenderer and configuration files.
func RegisterRendererType(name string, factory RendererFactory) {
	rendererLock.Lock()
	defer rendererLock.Unlock()

	renderers[name] = factory
}

// Build a RenderFunc from the named renderer type.
func BuiltinRenderer(name string, options map[string]interface{}) (RenderFunc, error) {
	rendererLock.RLock()
	var factory, ok = renderers[name]
	rendererLock.RUnlock()

	if ok {
		return factory(options)
	}

	return nil, fmt.Errorf("unrecognized renderer type %q", name)
}

// Return the names of all registered renderer types.
func RendererTypes() []string {
	rendererLock.RLock()
	defer rendererLock.RUnlock()

	var names = make([]string, 0, len(renderers))

	for name := range renderers {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

type headerer interface {
	Header() http.Header
}

// Set a response header if the context exposes response headers.
func setHeader(ctx Context, name string, value string) {
	if h, ok := ctx.(headerer); ok && value != `` {
		h.Header().Set(name, value)
	}
}

// Read a template file, splitting off its front matter.  Any "page" values in the
// front matter are merged into data["page"], with the front matter winning.
func loadTemplateSource(tmpl *Template, data map[string]interface{}) (*internal.TemplateHeader, []byte, error) {
	if tmpl.Path == `` {
		return nil, nil, fmt.Errorf("template %s has no path", tmpl.Name)
	}

	var file, err = os.Open(tmpl.Path)

	if err != nil {
		return nil, nil, err
	}

	defer file.Close()

	hdr, body, err := internal.SplitTemplateHeaderContent(file)

	if err != nil {
		return nil, nil, fmt.Errorf("template %s: front matter: %v", tmpl.Name, err)
	}

	if len(hdr.Page) > 0 && data != nil {
		if existing, ok := data[`page`]; ok && typeutil.IsMap(existing) {
			if page, err := maputil.Merge(existing, hdr.Page); err == nil {
				data[`page`] = page
			} else {
				return nil, nil, err
			}
		} else {
			data[`page`] = hdr.Page
		}
	}

	return hdr, body, nil
}

// The status a renderer ends with.  A front matter statusCode wins; otherwise an
// error passed in as data["error"] supplies its code, and anything else is a 200.
func responseStatus(hdr *internal.TemplateHeader, data map[string]interface{}) int {
	if hdr != nil && hdr.StatusCode > 0 {
		return hdr.StatusCode
	}

	if err, ok := data[`error`].(error); ok {
		return StatusCode(err, http.StatusOK)
	}

	return http.StatusOK
}
