package rendition

import (
	"bytes"

	"github.com/ghetzel/go-stockutil/log"
)

// TemplateRenderer renders Go templates.  Files ending in .html or .htm use
// html/template, everything else uses text/template.  Front matter may override the
// response status code and content type.
func TemplateRenderer(funcs FuncMap) RenderFunc {
	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		hdr, body, err := loadTemplateSource(tmpl, data)

		if err != nil {
			return err
		}

		gotmpl, err := ParseGoTemplate(tmpl.Name, GetEngineForFile(tmpl.Path), funcs, string(body))

		if err != nil {
			return err
		}

		log.Debugf("render: %s as %v template (%d bytes of front matter)", tmpl.Path, gotmpl.Engine, hdr.ContentOffset)

		var buf bytes.Buffer

		if err := gotmpl.Render(&buf, data); err != nil {
			return err
		}

		out, err := postprocess(buf.String(), hdr.Postprocessors)

		if err != nil {
			return err
		}

		setHeader(ctx, `Content-Type`, gotmpl.Engine.ContentType())
		setHeader(ctx, `Content-Type`, hdr.ContentType)
		ctx.End(out, responseStatus(hdr, data))

		return nil
	}
}
