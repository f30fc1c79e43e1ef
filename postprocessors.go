package rendition

import (
	"fmt"
	"regexp"
	"sync"
)

var rxEmptyLine = regexp.MustCompile(`(?m)^\s*$[\r\n]*|[\r\n]+\s+\z`)

// A PostprocessorFunc transforms rendered output before it is sent.
type PostprocessorFunc func(string) (string, error)

var registeredPostprocessors = map[string]PostprocessorFunc{
	`trim-empty-lines`: TrimEmptyLines,
}

var postprocessorLock sync.RWMutex

// Make a postprocessor available to templates listing it in their front matter.
func RegisterPostprocessor(name string, ppfunc PostprocessorFunc) {
	if ppfunc != nil {
		postprocessorLock.Lock()
		registeredPostprocessors[name] = ppfunc
		postprocessorLock.Unlock()
	}
}

func TrimEmptyLines(in string) (string, error) {
	return rxEmptyLine.ReplaceAllString(in, ``) + "\n", nil
}

// Run the named postprocessors over output, in order.
func postprocess(output string, names []string) (string, error) {
	for _, name := range names {
		postprocessorLock.RLock()
		var ppfunc, ok = registeredPostprocessors[name]
		postprocessorLock.RUnlock()

		if !ok {
			return ``, fmt.Errorf("unrecognized postprocessor %q", name)
		}

		if out, err := ppfunc(output); err == nil {
			output = out
		} else {
			return ``, fmt.Errorf("postprocessor %s: %v", name, err)
		}
	}

	return output, nil
}
