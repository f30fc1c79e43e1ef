package rendition

import (
	"github.com/ghetzel/go-stockutil/fileutil"
)

// PassthroughRenderer responds with the template file's contents, minus any front matter.  An
// empty contentType is inferred from the file name.
func PassthroughRenderer(contentType string) RenderFunc {
	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		hdr, body, err := loadTemplateSource(tmpl, nil)

		if err != nil {
			return err
		}

		if contentType == `` {
			setHeader(ctx, `Content-Type`, fileutil.GetMimeType(tmpl.Path, `application/octet-stream`))
		} else {
			setHeader(ctx, `Content-Type`, contentType)
		}

		ctx.End(string(body), responseStatus(hdr, data))
		return nil
	}
}
