package rendition

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/gobwas/glob"
)

// A Transform is a pre-render data transformation supplied by the host.
type Transform interface {
	Start(data map[string]interface{}) (map[string]interface{}, error)
}

// HookFunc receives the render data and returns the data to render with.
type HookFunc func(data map[string]interface{}) (map[string]interface{}, error)

func (self HookFunc) Start(data map[string]interface{}) (map[string]interface{}, error) {
	return self(data)
}

// HookSystem is the host contract for registering and retrieving hooks keyed by
// hook name, URL, and method.
type HookSystem interface {
	Hook(name string, url string, method string, fn HookFunc) (*Hook, error)
	GetHooks(name string, path string, method string) Transform
}

type Hook struct {
	Name    string
	URL     string
	Method  string
	fn      HookFunc
	pattern glob.Glob
}

func (self *Hook) Matches(path string, method string) bool {
	if self.Method != `` && self.Method != `*` && !strings.EqualFold(self.Method, method) {
		return false
	}

	return self.pattern.Match(path)
}

// Hooks is an in-process HookSystem.  URL patterns are glob patterns as described at
// https://pkg.go.dev/github.com/gobwas/glob#Compile, with "/" as the separator.
type Hooks struct {
	hooks []*Hook
	lock  sync.RWMutex
}

func NewHooks() *Hooks {
	return new(Hooks)
}

// Register a hook under the given name for requests matching url and method.  An
// empty method or "*" matches any method.
func (self *Hooks) Hook(name string, url string, method string, fn HookFunc) (*Hook, error) {
	if fn == nil {
		return nil, fmt.Errorf("cannot use nil hook function")
	}

	if url == `` {
		url = `**`
	}

	if pattern, err := glob.Compile(url, '/'); err == nil {
		var hook = &Hook{
			Name:    name,
			URL:     url,
			Method:  method,
			fn:      fn,
			pattern: pattern,
		}

		self.lock.Lock()
		self.hooks = append(self.hooks, hook)
		self.lock.Unlock()

		log.Debugf("hooks: registered %s hook for %s %s", name, strings.ToUpper(method), url)
		return hook, nil
	} else {
		return nil, fmt.Errorf("bad hook pattern %q: %v", url, err)
	}
}

// Return a Transform running every hook that matches, in the order they were
// registered, or nil if none do.
func (self *Hooks) GetHooks(name string, path string, method string) Transform {
	self.lock.RLock()
	defer self.lock.RUnlock()

	var chain hookChain

	for _, hook := range self.hooks {
		if hook.Name == name && hook.Matches(path, method) {
			chain = append(chain, hook)
		}
	}

	if len(chain) == 0 {
		return nil
	}

	return chain
}

type hookChain []*Hook

// Runs each hook in turn.  The first error stops the chain; the data produced up
// to that point is returned alongside it.
func (self hookChain) Start(data map[string]interface{}) (map[string]interface{}, error) {
	for _, hook := range self {
		if out, err := hook.fn(data); err == nil {
			if out != nil {
				data = out
			}
		} else {
			if out != nil {
				data = out
			}

			return data, err
		}
	}

	return data, nil
}
