package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/tj/go-zipstream"
)

var opts struct {
	Output      string   `short:"o" long:"output" description:"write the archive to this file instead of stdout"`
	Store       bool     `long:"store" description:"store files without compression"`
	Level       int      `short:"l" long:"level" description:"flate compression level (1-9, -2 for huffman only)"`
	Concurrency int      `short:"c" long:"concurrency" description:"number of files compressed at once"`
	Ignore      []string `short:"i" long:"ignore" description:"gitignore-style pattern files, missing files are skipped"`
	Dotfiles    bool     `long:"dotfiles" description:"include dotfiles"`
	Verbose     bool     `short:"v" long:"verbose" description:"enable debug logging"`
	Args        struct {
		Paths []string `positional-arg-name:"path" required:"1"`
	} `positional-args:"yes"`
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(context.Background()); err != nil {
		log.WithError(err).Fatal("zipstream")
	}
}

// run writes the archive.
func run(ctx context.Context) error {
	var w io.Writer = os.Stdout

	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return errors.Wrap(err, "creating output")
		}
		w = f
	}

	z := zipstream.New(w)

	if opts.Concurrency > 0 {
		z.WithConcurrency(opts.Concurrency)
	}

	var filters []zipstream.Filter
	if !opts.Dotfiles {
		filters = append(filters, zipstream.FilterDotfiles)
	}

	if len(opts.Ignore) > 0 {
		f, err := zipstream.FilterPatternFiles(opts.Ignore...)
		if err != nil {
			return errors.Wrap(err, "loading patterns")
		}
		filters = append(filters, f)
	}

	z.WithFilter(zipstream.FilterAny(filters...))

	entry := zipstream.Options{
		Store:             opts.Store,
		CompressorOptions: zipstream.FlateOptions{Level: opts.Level},
	}

	for _, path := range opts.Args.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrap(err, "stat")
		}

		if info.IsDir() {
			if err := z.AddDir(ctx, path, entry); err != nil {
				return errors.Wrapf(err, "adding %s", path)
			}
			continue
		}

		if err := addFile(ctx, z, path, info, entry); err != nil {
			return errors.Wrapf(err, "adding %s", path)
		}
	}

	n, err := z.Close()
	if err != nil {
		return errors.Wrap(err, "closing archive")
	}

	stats := z.Stats()
	log.WithFields(log.Fields{
		"files":    stats.FilesAdded,
		"filtered": stats.FilesFiltered,
		"size":     humanize.Bytes(uint64(n)),
	}).Info("archived")

	return nil
}

// addFile adds a single file by its base name.
func addFile(ctx context.Context, z *zipstream.Archive, path string, info os.FileInfo, entry zipstream.Options) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	entry.Modified = zipstream.Time(info.ModTime())

	p, err := z.Add(ctx, filepath.Base(path), b, entry)
	if err != nil {
		return err
	}

	return p.Wait()
}
