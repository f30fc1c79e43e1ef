package rendition

import (
	"github.com/microcosm-cc/bluemonday"
	blackfriday "github.com/russross/blackfriday/v2"
)

// MarkdownRenderer renders Markdown files to sanitized HTML.
func MarkdownRenderer() RenderFunc {
	var policy = bluemonday.UGCPolicy()

	return func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		hdr, input, err := loadTemplateSource(tmpl, data)

		if err != nil {
			return err
		}

		var output = blackfriday.Run(
			input,
			blackfriday.WithExtensions(blackfriday.CommonExtensions),
		)

		output = policy.SanitizeBytes(output)

		setHeader(ctx, `Content-Type`, `text/html; charset=utf-8`)
		ctx.End(string(output), responseStatus(hdr, data))

		return nil
	}
}
