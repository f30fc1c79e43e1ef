package rendition

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/ghetzel/go-stockutil/log"
)

type pongoSets struct {
	baseDir string
	sets    map[string]*pongo2.TemplateSet
	lock    sync.Mutex
}

// Return the template set whose loader is rooted at dir.
func (self *pongoSets) get(dir string) (*pongo2.TemplateSet, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if set, ok := self.sets[dir]; ok {
		return set, nil
	}

	if loader, err := pongo2.NewLocalFileSystemLoader(dir); err == nil {
		var set = pongo2.NewSet(ApplicationName+`:`+dir, loader)

		self.sets[dir] = set
		log.Debugf("pongo2: created template set rooted at %s", dir)

		return set, nil
	} else {
		return nil, fmt.Errorf("pongo2: create local loader: %w", err)
	}
}

// Pongo2Renderer renders Django-style templates.  Includes and extends resolve
// relative to baseDir, or to each template's own directory if baseDir is empty.
func Pongo2Renderer(baseDir string) (RenderFunc, error) {
	var sets = &pongoSets{
		baseDir: strings.TrimSpace(baseDir),
		sets:    make(map[string]*pongo2.TemplateSet),
	}

	if sets.baseDir != `` {
		if _, err := sets.get(sets.baseDir); err != nil {
			return nil, err
		}
	}

	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		hdr, body, err := loadTemplateSource(tmpl, data)

		if err != nil {
			return err
		}

		var dir = sets.baseDir

		if dir == `` {
			dir = tmpl.Dir
		}

		set, err := sets.get(dir)

		if err != nil {
			return err
		}

		ptmpl, err := set.FromBytes(body)

		if err != nil {
			return fmt.Errorf("pongo2: parse template %q: %w", tmpl.Name, err)
		}

		out, err := ptmpl.Execute(pongo2.Context(data))

		if err != nil {
			return fmt.Errorf("pongo2: execute template %q: %w", tmpl.Name, err)
		}

		if out, err = postprocess(out, hdr.Postprocessors); err != nil {
			return err
		}

		setHeader(ctx, `Content-Type`, `text/html; charset=utf-8`)
		setHeader(ctx, `Content-Type`, hdr.ContentType)
		ctx.End(out, responseStatus(hdr, data))

		return nil
	}, nil
}
