package zipstream

import (
	"os"
	"time"
)

// pathInfo wraps FileInfo so Name() returns the
// slash-separated path relative to the AddDir root.
type pathInfo struct {
	os.FileInfo
	path string
}

// Name returns the relative path.
func (p *pathInfo) Name() string {
	return p.path
}

// Info describes an in-memory file, and is useful for
// filters and transforms which don't work with files
// from disk.
type Info struct {
	Name     string
	Size     int64
	Modified time.Time
	Dir      bool
}

// FileInfo returns the info wrapped as an os.FileInfo.
func (i Info) FileInfo() os.FileInfo {
	return &fileInfo{i}
}

// fileInfo implements os.FileInfo for Info.
type fileInfo struct {
	Info
}

func (i *fileInfo) Name() string       { return i.Info.Name }
func (i *fileInfo) Size() int64        { return i.Info.Size }
func (i *fileInfo) ModTime() time.Time { return i.Info.Modified }
func (i *fileInfo) IsDir() bool        { return i.Info.Dir }
func (i *fileInfo) Sys() interface{}   { return nil }

// Mode implementation, entries carry no permissions
// so only the directory bit is meaningful.
func (i *fileInfo) Mode() os.FileMode {
	if i.Info.Dir {
		return os.ModeDir | 0755
	}
	return 0644
}
