package zipstream

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Normalize returns the archive-relative form of name.
//
// Backslashes are treated as separators and "." / ".." segments are
// collapsed, so "a/../b" is stored as "b". Names which are empty,
// absolute, drive-letter prefixed, end with a separator or resolve
// outside of the archive root are rejected with ErrInvalidName.
func Normalize(name string) (string, error) {
	s := strings.Replace(name, `\`, "/", -1)

	switch {
	case s == "":
		return "", errors.Wrap(ErrInvalidName, "empty name")
	case hasDrive(s):
		return "", errors.Wrapf(ErrInvalidName, "%q has a drive letter", name)
	case strings.HasSuffix(s, "/"):
		return "", errors.Wrapf(ErrInvalidName, "%q is a directory", name)
	case strings.HasPrefix(s, "/"):
		return "", errors.Wrapf(ErrInvalidName, "%q is absolute", name)
	}

	s = path.Clean(s)

	if s == "." || s == ".." || strings.HasPrefix(s, "../") {
		return "", errors.Wrapf(ErrInvalidName, "%q is outside of the archive", name)
	}

	return s, nil
}

// hasDrive returns true if there's a leading drive letter.
func hasDrive(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
