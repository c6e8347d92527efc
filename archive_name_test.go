package zipstream_test

import (
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/tj/assert"

	"github.com/tj/go-zipstream"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		Name     string
		Expected string
	}{
		{"foo.txt", "foo.txt"},
		{"foo/bar.txt", "foo/bar.txt"},
		{`foo\bar.txt`, "foo/bar.txt"},
		{"./foo.txt", "foo.txt"},
		{"a/../b", "b"},
		{"a/./b//c", "a/b/c"},
		{"héllo/wörld", "héllo/wörld"},
		{"1:foo", "1:foo"},
	}

	for _, c := range cases {
		t.Run(strconv.Quote(c.Name), func(t *testing.T) {
			s, err := zipstream.Normalize(c.Name)
			assert.NoError(t, err, "normalize")
			assert.Equal(t, c.Expected, s)
		})
	}
}

func TestNormalize_invalid(t *testing.T) {
	names := []string{
		"",
		"/",
		"/abs",
		`\abs`,
		"..",
		"../parent",
		"a/../..",
		"dir/",
		`C:\drive`,
		"z:",
		".",
		"./",
	}

	for _, name := range names {
		t.Run(strconv.Quote(name), func(t *testing.T) {
			_, err := zipstream.Normalize(name)
			assert.Equal(t, zipstream.ErrInvalidName, errors.Cause(err))
		})
	}
}
