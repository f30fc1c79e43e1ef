package rendition

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/rendition/internal"
)

// Registration describes a single call to Registry.Register.
type Registration struct {
	// The template name.  When empty, the name is derived from Path.
	Name string

	// Path to the template file.
	Path string

	// Use the full Path as the template name.
	UsePathAsName bool

	// Replace any existing template of the same name.
	Reregister bool

	// An inline render function; templates registered this way have no path.
	Renderer RenderFunc

	// Static data merged into the render data (see Template.Data).
	Data map[string]interface{}
}

// Registry owns all registered templates and the extension to renderer mapping.
type Registry struct {
	Logger    Logger
	templates map[string]*Template
	renderers map[string]RenderFunc
	lock      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*Template),
		renderers: make(map[string]RenderFunc),
	}
}

// Register a template.  If a template with the resolved name already exists and
// Reregister is not set, the existing template is returned unchanged.
func (self *Registry) Register(reg Registration) (*Template, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	return self.register(reg)
}

func (self *Registry) register(reg Registration) (*Template, error) {
	var name = reg.Name
	var tmpl *Template

	if reg.Renderer != nil && reg.Path == `` {
		if name == `` {
			return nil, fmt.Errorf("%w: inline templates require a name", ErrInvalidArguments)
		}

		if existing, ok := self.templates[name]; ok && !reg.Reregister {
			return existing, nil
		}

		tmpl = newInlineTemplate(name, reg.Renderer)
	} else if reg.Path != `` {
		var info = internal.ParsePath(reg.Path)

		if reg.UsePathAsName {
			name = reg.Path
		} else if name == `` {
			name = info.Name
		}

		if existing, ok := self.templates[name]; ok && !reg.Reregister {
			return existing, nil
		}

		tmpl = newPathTemplate(name, info)

		if reg.Renderer != nil {
			tmpl.setRenderer(reg.Renderer)
		} else if renderer := self.renderers[tmpl.Ext]; renderer != nil {
			tmpl.setRenderer(renderer)
		}
	} else {
		return nil, ErrInvalidArguments
	}

	tmpl.Data = reg.Data
	self.templates[tmpl.Name] = tmpl

	return tmpl, nil
}

// Register the template at path under the given name.  An empty name is derived
// from the file name.
func (self *Registry) RegisterTemplate(name string, path string) (*Template, error) {
	return self.Register(Registration{
		Name: name,
		Path: path,
	})
}

// Register the template at path, naming it after the file (without extension).
func (self *Registry) RegisterPath(path string) (*Template, error) {
	return self.Register(Registration{
		Path: path,
	})
}

// Register the template at path, using the whole path as its name.
func (self *Registry) RegisterPathAsName(path string) (*Template, error) {
	return self.Register(Registration{
		Path:          path,
		UsePathAsName: true,
	})
}

// Register a template whose content is produced by the given function.
func (self *Registry) RegisterFunc(name string, fn RenderFunc) (*Template, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil render function", ErrInvalidArguments)
	}

	return self.Register(Registration{
		Name:     name,
		Renderer: fn,
	})
}

// Retrieve a template by name.  Absolute paths that have not been registered are
// registered on the fly.
func (self *Registry) GetTemplate(name string) (*Template, error) {
	self.lock.RLock()
	var tmpl, ok = self.templates[name]
	self.lock.RUnlock()

	if ok {
		return tmpl, nil
	}

	if internal.IsAbsolute(name) {
		self.lock.Lock()
		defer self.lock.Unlock()

		return self.register(Registration{
			Path:          name,
			UsePathAsName: true,
		})
	}

	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// Register the renderer for a file extension.  The first registration for an
// extension wins; subsequent ones are logged and ignored.  Templates already
// registered with this extension and no renderer receive it.
func (self *Registry) RegisterRenderer(ext string, fn RenderFunc) bool {
	if fn == nil {
		return false
	}

	ext = normalizeExt(ext)

	self.lock.Lock()
	defer self.lock.Unlock()

	if _, ok := self.renderers[ext]; ok {
		logf(self.Logger, log.WARNING, "%v", &RendererConflictError{
			Ext: ext,
		})

		return false
	}

	self.renderers[ext] = fn

	for _, tmpl := range self.templates {
		if tmpl.Ext == ext && !tmpl.HasRenderer() {
			tmpl.setRenderer(fn)
		}
	}

	return true
}

// Return the renderer registered for the given extension, or nil.
func (self *Registry) GetRenderer(ext string) RenderFunc {
	self.lock.RLock()
	defer self.lock.RUnlock()

	return self.renderers[normalizeExt(ext)]
}

// Return the sorted names of all registered templates.
func (self *Registry) Names() []string {
	self.lock.RLock()
	defer self.lock.RUnlock()

	var names = make([]string, 0, len(self.templates))

	for name := range self.templates {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func (self *Registry) Len() int {
	self.lock.RLock()
	defer self.lock.RUnlock()

	return len(self.templates)
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(ext, `.`)
}
