package internal

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v2"
)

var FrontMatterSeparator = []byte("---\n")
var frontMatterClose = []byte("\n---\n")

// TemplateHeader is the optional YAML front matter at the top of a template file.
type TemplateHeader struct {
	Page           map[string]interface{} `yaml:"page"`
	ContentType    string                 `yaml:"contentType"`
	StatusCode     int                    `yaml:"statusCode"`
	Postprocessors []string               `yaml:"postprocessors"`
	ContentOffset  int                    `yaml:"-"`
}

// Split a template source into its front matter header and body.  A source without
// front matter yields an empty header and the whole input as the body.
func SplitTemplateHeaderContent(r io.Reader) (*TemplateHeader, []byte, error) {
	data, err := io.ReadAll(r)

	if err != nil {
		return nil, nil, err
	}

	var hdr = new(TemplateHeader)

	if !bytes.HasPrefix(data, FrontMatterSeparator) {
		return hdr, data, nil
	}

	// the closing separator must occupy a line of its own
	var rest = data[len(FrontMatterSeparator):]
	var end int

	if !bytes.HasPrefix(rest, FrontMatterSeparator) {
		if i := bytes.Index(rest, frontMatterClose); i >= 0 {
			end = i + 1
		} else {
			return hdr, data, nil
		}
	}

	var body = rest[end+len(FrontMatterSeparator):]

	hdr.ContentOffset = len(data) - len(body)

	if err := yaml.UnmarshalStrict(rest[:end], hdr); err != nil {
		return nil, body, err
	}

	return hdr, body, nil
}
