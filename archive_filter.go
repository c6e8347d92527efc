package zipstream

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/denormal/go-gitignore"
	"github.com/pkg/errors"
)

// Filter is the interface used to filter files added by AddDir.
type Filter interface {
	// Match on the given file info, named by its slash-separated
	// path relative to the root. If true the file is omitted.
	Match(os.FileInfo) bool
}

// FilterFunc implements the Filter interface.
type FilterFunc func(os.FileInfo) bool

// Match implementation.
func (f FilterFunc) Match(i os.FileInfo) bool {
	return f(i)
}

// FilterAny omits files matched by any of the filters.
func FilterAny(filters ...Filter) Filter {
	return FilterFunc(func(info os.FileInfo) bool {
		for _, f := range filters {
			if f != nil && f.Match(info) {
				return true
			}
		}
		return false
	})
}

// FilterDotfiles filters files with a dot-prefixed path segment.
var FilterDotfiles = FilterFunc(func(info os.FileInfo) bool {
	for _, s := range strings.Split(info.Name(), "/") {
		if isDot(s) {
			return true
		}
	}
	return false
})

// isDot returns true if there's a leading dot.
func isDot(s string) bool {
	return len(s) > 0 && s[0] == '.'
}

// FilterPatterns filters on the given reader
// of gitignore-style patterns.
func FilterPatterns(r io.Reader) (Filter, error) {
	ignore := gitignore.New(r, ".", func(e gitignore.Error) bool {
		log.WithError(e).Warn("skipping pattern")
		return true
	})

	return FilterFunc(func(info os.FileInfo) bool {
		if m := ignore.Relative(info.Name(), info.IsDir()); m != nil {
			return m.Ignore()
		}
		return false
	}), nil
}

// FilterPatternFiles filters from the given files, ignoring
// any which do not exist, combining the patterns in order.
func FilterPatternFiles(files ...string) (Filter, error) {
	var r io.Reader = strings.NewReader("")

	for _, path := range files {
		b, err := os.ReadFile(path)

		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}

		r = io.MultiReader(r,
			strings.NewReader(fmt.Sprintf("# %s\n", path)),
			bytes.NewReader(b),
			strings.NewReader("\n"))
	}

	return FilterPatterns(r)
}
