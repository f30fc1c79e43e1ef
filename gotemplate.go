package rendition

import (
	"errors"
	"fmt"
	html "html/template"
	"io"
	"path/filepath"
	"strings"
	text "text/template"
)

type Engine int

const (
	TextEngine Engine = iota
	HtmlEngine
)

func (self Engine) String() string {
	if self == HtmlEngine {
		return `html`
	}

	return `text`
}

// The Content-Type of output produced by this engine.
func (self Engine) ContentType() string {
	if self == HtmlEngine {
		return `text/html; charset=utf-8`
	}

	return `text/plain; charset=utf-8`
}

type FuncMap map[string]interface{}

// HTML files get html/template's contextual escaping; everything else is plain text.
func GetEngineForFile(filename string) Engine {
	switch strings.ToLower(filepath.Ext(filename)) {
	case `.html`, `.htm`:
		return HtmlEngine
	}

	return TextEngine
}

type executor interface {
	Execute(w io.Writer, data interface{}) error
}

// A GoTemplate is a parsed text/template or html/template.
type GoTemplate struct {
	Name   string
	Engine Engine
	exec   executor
}

// Parse source with the given engine and functions.
func ParseGoTemplate(name string, engine Engine, funcs FuncMap, source string) (*GoTemplate, error) {
	var gotmpl = &GoTemplate{
		Name:   name,
		Engine: engine,
	}

	var err error

	if engine == HtmlEngine {
		gotmpl.exec, err = html.New(name).Funcs(html.FuncMap(funcs)).Parse(source)
	} else {
		gotmpl.exec, err = text.New(name).Funcs(text.FuncMap(funcs)).Parse(source)
	}

	if err != nil {
		return nil, fmt.Errorf("parse %v template %s: %w", engine, name, err)
	}

	return gotmpl, nil
}

func (self *GoTemplate) Render(w io.Writer, data interface{}) error {
	if err := self.exec.Execute(w, data); err != nil {
		var execErr text.ExecError
		var htmlErr *html.Error

		if errors.As(err, &htmlErr) {
			return fmt.Errorf("template %s: line %d: %v", self.Name, htmlErr.Line, htmlErr.Description)
		} else if errors.As(err, &execErr) {
			return fmt.Errorf("template %s: %w", self.Name, execErr.Err)
		}

		return fmt.Errorf("template %s: %w", self.Name, err)
	}

	return nil
}
