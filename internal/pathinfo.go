package internal

import (
	"path/filepath"
	"strings"
)

// PathInfo describes the components of a template path.
type PathInfo struct {
	Absolute string
	Dir      string
	Base     string
	Name     string
	Ext      string
}

// Split a path into its directory, base name, extension (without the leading dot),
// and name (base name without the extension).
func ParsePath(path string) PathInfo {
	var base = filepath.Base(path)
	var ext = filepath.Ext(base)

	if base == `.` || base == string(filepath.Separator) {
		base = ``
	}

	return PathInfo{
		Absolute: path,
		Dir:      filepath.Dir(path),
		Base:     base,
		Name:     strings.TrimSuffix(base, ext),
		Ext:      strings.TrimPrefix(ext, `.`),
	}
}

func IsAbsolute(path string) bool {
	return filepath.IsAbs(path)
}
