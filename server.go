package rendition

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/maputil"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
)

var DefaultIndexTemplate = `index`

const XRenditionCache = `X-Rendition-Cache`

var rxPathWildcard = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?:\.\.\.)?\}`)

// A Route maps requests matching a path pattern and methods to a template.  Path
// patterns follow net/http.ServeMux, e.g. "/posts/{slug}".
type Route struct {
	Path     string   `yaml:"path"`
	Methods  []string `yaml:"methods,omitempty"`
	Template string   `yaml:"template"`
}

// Server is an HTTP host for a Registry and Dispatcher.
type Server struct {
	Address    string
	Registry   *Registry
	Dispatcher *Dispatcher
	Hooks      *Hooks
	Cache      ResponseCache
	CacheTTL   time.Duration

	// Omit the Server-Timing response header.
	DisableTimings bool

	routes []Route
	mux    *http.ServeMux
}

func NewServer() *Server {
	var registry = NewRegistry()
	var hooks = NewHooks()
	var dispatcher = NewDispatcher(registry)

	dispatcher.Hooks = hooks

	var server = &Server{
		Address:    DefaultAddress,
		Registry:   registry,
		Dispatcher: dispatcher,
		Hooks:      hooks,
		mux:        http.NewServeMux(),
	}

	server.mux.HandleFunc(`/`, server.handleUnrouted)

	return server
}

// Add a route.  Routes without methods match GET requests.
func (self *Server) AddRoute(route Route) (err error) {
	if route.Path == `` || route.Template == `` {
		return fmt.Errorf("routes require a path and a template")
	}

	var methods = sliceutil.CompactString(route.Methods)

	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}

	// ServeMux panics on invalid or conflicting patterns
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bad route %q: %v", route.Path, r)
		}
	}()

	for _, method := range methods {
		var pattern = strings.ToUpper(method) + ` ` + route.Path
		var rt = route

		self.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
			self.serveTemplate(w, req, rt.Template, pathParams(rt.Path, req))
		})

		log.Debugf("server: route %s -> %s", pattern, route.Template)
	}

	self.routes = append(self.routes, route)
	return nil
}

func (self *Server) Routes() []Route {
	return self.routes
}

func (self *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	self.mux.ServeHTTP(w, req)
}

func (self *Server) ListenAndServe(address string) error {
	var addr = typeutil.OrString(address, self.Address, DefaultAddress)

	log.Infof("%s listening at %s", ApplicationName, addr)
	return http.ListenAndServe(addr, self)
}

// Render a single template outside of any incoming request.
func (self *Server) RenderOne(name string, data map[string]interface{}) (*httptest.ResponseRecorder, error) {
	var w = httptest.NewRecorder()
	var req = httptest.NewRequest(http.MethodGet, `/`, nil)
	var ctx = NewHTTPContext(w, req)

	if data == nil {
		data = requestData(req, nil)
	}

	var err = self.Dispatcher.Render(ctx, name, data)

	if ferr := ctx.Flush(); ferr != nil && err == nil {
		err = ferr
	}

	return w, err
}

// Requests that no route claims render the template named after the last path
// segment (without extension), or "index" for the root.  The error template is
// only reachable through the fallback.
func (self *Server) handleUnrouted(w http.ResponseWriter, req *http.Request) {
	var name = strings.TrimSuffix(path.Base(req.URL.Path), path.Ext(req.URL.Path))

	if name == `/` || name == `.` || name == `` {
		name = DefaultIndexTemplate
	}

	if name == self.Dispatcher.errorTemplate() {
		http.Error(w, fmt.Sprintf("no template for %s", req.URL.Path), http.StatusNotFound)
	} else if _, err := self.Registry.GetTemplate(name); err == nil {
		self.serveTemplate(w, req, name, nil)
	} else {
		http.Error(w, fmt.Sprintf("no template for %s", req.URL.Path), http.StatusNotFound)
	}
}

func (self *Server) serveTemplate(w http.ResponseWriter, req *http.Request, name string, params map[string]interface{}) {
	var cacheKey string

	if self.Cache != nil && req.Method == http.MethodGet {
		cacheKey = CacheKey(req.Method, req.URL.String())

		if cached, err := self.Cache.Get(req.Context(), cacheKey); err == nil {
			w.Header().Set(XRenditionCache, `hit`)

			if cached.ContentType != `` {
				w.Header().Set(`Content-Type`, cached.ContentType)
			}

			w.WriteHeader(cached.StatusCode)
			w.Write([]byte(cached.Body))
			return
		} else if !errors.Is(err, ErrCacheMiss) {
			log.Warningf("cache: %v", err)
		}

		w.Header().Set(XRenditionCache, `miss`)
	}

	var ctx = NewHTTPContext(w, req)
	ctx.DisableTimings = self.DisableTimings
	defer ctx.Done()

	var state, err = self.Dispatcher.RenderState(ctx, name, requestData(req, params))

	if err != nil {
		ctx.Logf(log.ERROR, "render %s: %v", name, err)

		if !ctx.Ended() {
			ctx.End(err.Error(), StatusCode(err, http.StatusInternalServerError))
		}
	}

	if err := ctx.Flush(); err != nil {
		ctx.Logf(log.WARNING, "write response: %v", err)
		return
	}

	// error pages are never cached, whatever status they ended with
	if cacheKey != `` && state == Primary && ctx.Code() == http.StatusOK {
		if err := self.Cache.Set(req.Context(), cacheKey, &CachedResponse{
			StatusCode:  ctx.Code(),
			ContentType: w.Header().Get(`Content-Type`),
			Body:        ctx.Body(),
		}, self.CacheTTL); err != nil {
			log.Warningf("cache: %v", err)
		}
	}
}

// The data every request-driven render starts with.
func requestData(req *http.Request, params map[string]interface{}) map[string]interface{} {
	if params == nil {
		params = make(map[string]interface{})
	}

	return map[string]interface{}{
		`request`: map[string]interface{}{
			`method`:         req.Method,
			`path`:           req.URL.Path,
			`query`:          maputil.M(req.URL.Query()).MapNative(),
			`headers`:        maputil.M(req.Header).MapNative(),
			`host`:           req.Host,
			`remote_address`: req.RemoteAddr,
		},
		`params`: params,
	}
}

// Collect the values of the wildcards named in pattern.
func pathParams(pattern string, req *http.Request) map[string]interface{} {
	var params = make(map[string]interface{})

	for _, match := range rxPathWildcard.FindAllStringSubmatch(pattern, -1) {
		params[match[1]] = req.PathValue(match[1])
	}

	return params
}
