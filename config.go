package rendition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghetzel/go-stockutil/fileutil"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/typeutil"
	"gopkg.in/yaml.v2"
)

// Renderer types attached to common extensions unless the configuration says
// otherwise.
var DefaultRendererTypes = map[string]string{
	`html`:  `gotemplate`,
	`htm`:   `gotemplate`,
	`tmpl`:  `gotemplate`,
	`txt`:   `gotemplate`,
	`md`:    `markdown`,
	`j2`:    `pongo2`,
	`pongo`: `pongo2`,
}

type TemplateConfig struct {
	Name          string                 `yaml:"name,omitempty"`
	Path          string                 `yaml:"path"`
	UsePathAsName bool                   `yaml:"as_path_name,omitempty"`
	Data          map[string]interface{} `yaml:"data,omitempty"`
}

type Config struct {
	Address         string                            `yaml:"address,omitempty"`
	HookName        string                            `yaml:"hook_name,omitempty"`
	ErrorTemplate   string                            `yaml:"error_template,omitempty"`
	Templates       []TemplateConfig                  `yaml:"templates,omitempty"`
	Routes          []Route                           `yaml:"routes,omitempty"`
	Renderers       map[string]string                 `yaml:"renderers,omitempty"`
	RendererOptions map[string]map[string]interface{} `yaml:"renderer_options,omitempty"`
	NoDefaults      bool                              `yaml:"no_default_renderers,omitempty"`
	DisableTimings  bool                              `yaml:"disable_timings,omitempty"`
	Cache           CacheConfig                       `yaml:"cache,omitempty"`
	Tracing         TracingConfig                     `yaml:"tracing,omitempty"`
	root            string
}

func LoadConfig(data []byte) (*Config, error) {
	var config Config

	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}

	return &config, nil
}

// Load configuration from a file.  Relative template paths are resolved against the
// file's directory.
func LoadConfigFile(filename string) (*Config, error) {
	filename = fileutil.MustExpandUser(filename)

	if data, err := os.ReadFile(filename); err == nil {
		if config, err := LoadConfig(data); err == nil {
			if abs, err := filepath.Abs(filename); err == nil {
				config.root = filepath.Dir(abs)
			} else {
				return nil, err
			}

			log.Debugf("config: loaded %s", filename)
			return config, nil
		} else {
			return nil, fmt.Errorf("%s: %v", filename, err)
		}
	} else {
		return nil, err
	}
}

// Configure the given server: its renderers, templates, routes, and cache.
func (self *Config) Apply(server *Server) error {
	server.Address = typeutil.OrString(self.Address, server.Address, DefaultAddress)
	server.Dispatcher.HookName = typeutil.OrString(self.HookName, server.Dispatcher.HookName)
	server.Dispatcher.ErrorTemplate = typeutil.OrString(self.ErrorTemplate, server.Dispatcher.ErrorTemplate)
	server.DisableTimings = server.DisableTimings || self.DisableTimings

	for _, ext := range sortedKeys(self.Renderers) {
		if err := self.attachRenderer(server.Registry, ext, self.Renderers[ext]); err != nil {
			return err
		}
	}

	if !self.NoDefaults {
		for _, ext := range sortedKeys(DefaultRendererTypes) {
			if server.Registry.GetRenderer(ext) == nil {
				if err := self.attachRenderer(server.Registry, ext, DefaultRendererTypes[ext]); err != nil {
					return err
				}
			}
		}
	}

	for i, tc := range self.Templates {
		if tc.Path == `` {
			return fmt.Errorf("template %d: %w", i, ErrInvalidArguments)
		}

		if tmpl, err := server.Registry.Register(Registration{
			Name:          tc.Name,
			Path:          self.resolve(tc.Path),
			UsePathAsName: tc.UsePathAsName,
			Data:          tc.Data,
		}); err == nil {
			log.Debugf("config: registered template %v", tmpl)
		} else {
			return err
		}
	}

	for _, route := range self.Routes {
		if err := server.AddRoute(route); err != nil {
			return err
		}
	}

	if cache, err := self.Cache.NewCache(); err == nil {
		server.Cache = cache
		server.CacheTTL = self.Cache.TTL
	} else {
		return err
	}

	return nil
}

func (self *Config) attachRenderer(registry *Registry, ext string, rtype string) error {
	if fn, err := BuiltinRenderer(rtype, self.RendererOptions[rtype]); err == nil {
		if registry.RegisterRenderer(ext, fn) {
			log.Debugf("config: using %s renderer for .%s files", rtype, normalizeExt(ext))
		}

		return nil
	} else {
		return fmt.Errorf("renderer for %q: %v", ext, err)
	}
}

func (self *Config) resolve(path string) string {
	path = fileutil.MustExpandUser(path)

	if self.root != `` && !filepath.IsAbs(path) && !strings.HasPrefix(path, `~`) {
		return filepath.Join(self.root, path)
	}

	return path
}

func sortedKeys(m map[string]string) []string {
	var keys = make([]string, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
