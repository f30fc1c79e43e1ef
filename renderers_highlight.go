package rendition

import (
	"bytes"

	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/quick"
)

var DefaultHighlightStyle = `monokai`

// HighlightRenderer renders source files as syntax-highlighted HTML.  The lexer is
// chosen from the file name, falling back to plain text.
func HighlightRenderer(style string) RenderFunc {
	if style == `` {
		style = DefaultHighlightStyle
	}

	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		hdr, body, err := loadTemplateSource(tmpl, nil)

		if err != nil {
			return err
		}

		var lexer = `plaintext`
		var buf bytes.Buffer

		if l := lexers.Match(tmpl.Base); l != nil {
			lexer = l.Config().Name
		}

		if err := quick.Highlight(&buf, string(body), lexer, `html`, style); err != nil {
			return err
		}

		setHeader(ctx, `Content-Type`, `text/html; charset=utf-8`)
		ctx.End(buf.String(), responseStatus(hdr, data))

		return nil
	}
}
