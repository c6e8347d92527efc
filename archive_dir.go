package zipstream

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Transformer is the interface used to transform files added by AddDir.
type Transformer interface {
	// Transform a file's contents or its meta-data. The returned
	// info's Name and ModTime are used for the entry.
	Transform([]byte, os.FileInfo) ([]byte, os.FileInfo)
}

// TransformFunc implements the Transformer interface.
type TransformFunc func([]byte, os.FileInfo) ([]byte, os.FileInfo)

// Transform implementation.
func (f TransformFunc) Transform(b []byte, i os.FileInfo) ([]byte, os.FileInfo) {
	return f(b, i)
}

// AddDir adds the regular files and symlinks under root, in
// walk order, and waits until all of them are written. Symlinks
// are stored with their target as contents. Modification times
// outside of the DOS range are clamped to 1980 or 2107.
func (a *Archive) AddDir(ctx context.Context, root string, opts Options) error {
	var g errgroup.Group

	err := filepath.Walk(root, func(abspath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		path, err := filepath.Rel(root, abspath)
		if err != nil {
			return err
		}
		path = filepath.ToSlash(filepath.Clean(path))

		if path == "." {
			return nil
		}

		info = &pathInfo{info, path}
		if a.filter != nil && a.filter.Match(info) {
			a.log.Debugf("filtered %s – %d", info.Name(), info.Size())

			if info.IsDir() {
				atomic.AddInt64(&a.stats.DirsFiltered, 1)
				return filepath.SkipDir
			}

			atomic.AddInt64(&a.stats.FilesFiltered, 1)
			return nil
		}

		if info.IsDir() {
			return nil
		}

		var b []byte

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(abspath)
			if err != nil {
				return errors.Wrap(err, "reading symlink")
			}
			b = []byte(link)
		case info.Mode().IsRegular():
			b, err = os.ReadFile(abspath)
			if err != nil {
				return errors.Wrap(err, "reading file")
			}
		default:
			return nil
		}

		if a.transform != nil {
			b, info = a.transform.Transform(b, info)
		}

		o := opts
		if o.Modified.IsZero() {
			o.Modified = Time(clampModTime(info.ModTime()))
		}

		p, err := a.Add(ctx, info.Name(), b, o)
		if err != nil {
			return errors.Wrap(err, "adding file")
		}

		g.Go(p.Wait)
		return nil
	})

	if werr := g.Wait(); err == nil {
		err = werr
	}

	return err
}

// clampModTime clamps t to the range of DOS date-times.
func clampModTime(t time.Time) time.Time {
	loc := t.Location()

	if lo := time.Date(1980, 1, 1, 0, 0, 0, 0, loc); t.Before(lo) {
		return lo
	}

	if hi := time.Date(2107, 12, 31, 23, 59, 58, 0, loc); t.After(hi) {
		return hi
	}

	return t
}
