package zipstream

import (
	"context"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// Options for a single entry. The zero value deflates
// the payload with the current time as its modification time.
type Options struct {
	// Store the payload as-is instead of deflating it.
	Store bool

	// Modified is the modification time, defaulting to
	// the time Add is called.
	Modified Timestamp

	// CompressorOptions are passed as-is to the Compressor.
	CompressorOptions interface{}
}

// Stats for an archive.
type Stats struct {
	FilesFiltered    int64
	DirsFiltered     int64
	FilesAdded       int64
	SizeUncompressed int64
	SizeCompressed   int64
}

// limits of the header fields, lowered in tests.
type limits struct {
	offset  uint64
	size    uint64
	entries int
}

// New returns a new archive streaming to w. When w
// implements io.Closer it is closed by Close.
func New(w io.Writer) *Archive {
	return &Archive{
		log:        log.Log,
		w:          w,
		compressor: FlateCompressor,
		workers:    semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		names:      make(map[string]struct{}),
		tail:       closedTicket(),
		limits: limits{
			offset:  uint32max,
			size:    uint32max,
			entries: uint16max,
		},
	}
}

// Archive is a streaming zip writer. Entries may be added
// concurrently, they are compressed in parallel and written
// in the order Add was called.
type Archive struct {
	filter     Filter
	transform  Transformer
	compressor Compressor
	workers    *semaphore.Weighted
	log        log.Interface
	w          io.Writer
	limits     limits
	stats      Stats

	mu      sync.Mutex
	names   map[string]struct{}
	tail    chan struct{}
	pending sync.WaitGroup
	closed  bool
	err     error

	// owned by the entry holding the current turn
	offset  uint64
	entries []Record
}

// Pending is an entry queued by Add.
type Pending struct {
	name   string
	done   chan struct{}
	err    error
	record Record
}

// Name returns the normalized entry name.
func (p *Pending) Name() string {
	return p.name
}

// Done returns a channel closed once the entry is resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait until the entry has been written to the sink or failed.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// Record returns the committed record, valid after a successful Wait.
func (p *Pending) Record() Record {
	<-p.done
	return p.record
}

// resolve the entry.
func (p *Pending) resolve(r Record, err error) {
	p.record = r
	p.err = err
	close(p.done)
}

// Stats returns stats about the archive.
func (a *Archive) Stats() *Stats {
	return &a.stats
}

// WithFilter adds a filter used by AddDir.
func (a *Archive) WithFilter(f Filter) *Archive {
	a.filter = f
	return a
}

// WithTransform adds a transform used by AddDir.
func (a *Archive) WithTransform(t Transformer) *Archive {
	a.transform = t
	return a
}

// WithLogger sets the logger.
func (a *Archive) WithLogger(l log.Interface) *Archive {
	a.log = l
	return a
}

// WithCompressor sets the compressor, defaulting to FlateCompressor.
func (a *Archive) WithCompressor(c Compressor) *Archive {
	a.mu.Lock()
	a.compressor = c
	a.mu.Unlock()
	return a
}

// WithConcurrency limits the number of entries compressed at
// once, defaulting to GOMAXPROCS. Entries already added keep
// the previous limit.
func (a *Archive) WithConcurrency(n int) *Archive {
	if n < 1 {
		n = 1
	}
	a.mu.Lock()
	a.workers = semaphore.NewWeighted(int64(n))
	a.mu.Unlock()
	return a
}

// Entries returns the records committed so far, in archive order.
func (a *Archive) Entries() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Record(nil), a.entries...)
}

// Add queues an entry. The name is validated and reserved before
// Add returns, so a duplicate is reported here rather than by
// the Pending. Compression happens in the background and the
// entry is written once every entry added before it is written.
//
// data must not be modified until the Pending is resolved.
func (a *Archive) Add(ctx context.Context, name string, data []byte, opts Options) (*Pending, error) {
	if !utf8.ValidString(name) {
		return nil, errors.Wrapf(ErrInvalidInput, "name %q is not utf-8", name)
	}

	name, err := Normalize(name)
	if err != nil {
		return nil, err
	}

	if len(name) > uint16max {
		return nil, errors.Wrapf(ErrRange, "name of %d bytes", len(name))
	}

	if uint64(len(data)) > a.limits.size {
		return nil, errors.Wrapf(ErrRange, "%s: size %d", name, len(data))
	}

	modified := opts.Modified
	if modified.IsZero() {
		modified = Time(time.Now())
	}

	dos, err := modified.pack()
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	p := &Pending{
		name: name,
		done: make(chan struct{}),
	}

	prev, turn, w, err := a.reserve(name)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(log.Fields{
		"name":  name,
		"size":  len(data),
		"store": opts.Store,
	}).Debug("add")

	go a.process(ctx, w, p, prev, turn, data, dos, opts)
	return p, nil
}

// worker is the compressor and its semaphore as of the Add call.
type worker struct {
	sem        *semaphore.Weighted
	compressor Compressor
}

// reserve the name and take the next turn.
func (a *Archive) reserve(name string) (prev <-chan struct{}, turn chan struct{}, w worker, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return nil, nil, w, a.err
	}

	if a.closed {
		return nil, nil, w, ErrClosed
	}

	if _, ok := a.names[name]; ok {
		return nil, nil, w, errors.Wrap(ErrDuplicateName, name)
	}

	a.names[name] = struct{}{}
	prev, turn = a.tail, make(chan struct{})
	a.tail = turn
	a.pending.Add(1)
	w = worker{sem: a.workers, compressor: a.compressor}
	return prev, turn, w, nil
}

// release a reserved name.
func (a *Archive) release(name string) {
	a.mu.Lock()
	delete(a.names, name)
	a.mu.Unlock()
}

// process compresses and commits an entry. The turn is
// always passed on, even when the entry fails.
func (a *Archive) process(ctx context.Context, w worker, p *Pending, prev <-chan struct{}, turn chan struct{}, data []byte, dos uint32, opts Options) {
	defer a.pending.Done()
	defer close(turn)

	r, payload, err := a.encode(ctx, w, p.name, data, dos, opts)
	if err != nil {
		a.release(p.name)
		p.resolve(Record{}, err)
		a.log.WithError(err).WithField("name", p.name).Debug("failed")
		<-prev
		return
	}

	<-prev

	if err := a.commit(&r, payload); err != nil {
		a.release(p.name)
		p.resolve(Record{}, err)
		a.log.WithError(err).WithField("name", p.name).Error("commit")
		return
	}

	p.resolve(r, nil)
}

// encode checksums and optionally compresses the payload.
func (a *Archive) encode(ctx context.Context, w worker, name string, data []byte, dos uint32, opts Options) (Record, []byte, error) {
	r := Record{
		Name:             name,
		CRC32:            checksum(data),
		Method:           Store,
		Modified:         dos,
		SizeUncompressed: uint32(len(data)),
	}

	payload := data

	if !opts.Store {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return r, nil, errors.Wrap(err, "waiting for compressor")
		}

		b, err := w.compressor.Compress(data, opts.CompressorOptions)
		w.sem.Release(1)

		if err != nil {
			return r, nil, errors.Wrapf(err, "compressing %s", name)
		}

		if uint64(len(b)) > a.limits.size {
			return r, nil, errors.Wrapf(ErrRange, "%s: compressed size %d", name, len(b))
		}

		payload = b
		r.Method = Deflate
	}

	r.SizeCompressed = uint32(len(payload))
	return r, payload, nil
}

// commit writes the local header, name and payload. Only the
// entry holding the current turn may call it.
func (a *Archive) commit(r *Record, payload []byte) error {
	if err := a.fatal(); err != nil {
		return err
	}

	if a.offset > a.limits.offset {
		return a.abort(fatalf("offset %d", a.offset))
	}

	r.Offset = uint32(a.offset)

	header := append(r.localHeader(), r.Name...)
	if _, err := a.w.Write(header); err != nil {
		return a.abort(&FatalError{Err: errors.Wrapf(err, "writing %s header", r.Name)})
	}

	if len(payload) > 0 {
		if _, err := a.w.Write(payload); err != nil {
			return a.abort(&FatalError{Err: errors.Wrapf(err, "writing %s", r.Name)})
		}
	}

	a.offset += uint64(len(header) + len(payload))

	a.mu.Lock()
	a.entries = append(a.entries, *r)
	a.mu.Unlock()

	atomic.AddInt64(&a.stats.FilesAdded, 1)
	atomic.AddInt64(&a.stats.SizeUncompressed, int64(r.SizeUncompressed))
	atomic.AddInt64(&a.stats.SizeCompressed, int64(r.SizeCompressed))

	a.log.WithFields(log.Fields{
		"name":   r.Name,
		"offset": r.Offset,
		"size":   r.SizeCompressed,
	}).Debug("commit")

	return nil
}

// fatal returns the error which terminated the stream, if any.
func (a *Archive) fatal() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// abort the stream, keeping the first fatal error.
func (a *Archive) abort(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
	}
	return a.err
}

// Close waits for every queued entry, then writes the central
// directory and closes the sink. The total archive size is returned.
func (a *Archive) Close() (int64, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, ErrClosed
	}
	a.closed = true
	a.mu.Unlock()

	a.log.Debug("drain")
	a.pending.Wait()

	if err := a.fatal(); err != nil {
		return 0, err
	}

	if a.offset > a.limits.offset {
		return 0, a.abort(fatalf("central directory offset %d", a.offset))
	}

	if len(a.entries) > a.limits.entries {
		return 0, a.abort(fatalf("%d entries", len(a.entries)))
	}

	start := a.offset

	var size uint64
	for i := range a.entries {
		size += directoryHeaderLen + uint64(len(a.entries[i].Name))
	}

	if size > a.limits.offset {
		return 0, a.abort(fatalf("central directory size %d", size))
	}

	for i := range a.entries {
		r := &a.entries[i]
		b := append(r.directoryHeader(), r.Name...)
		if _, err := a.w.Write(b); err != nil {
			return 0, a.abort(&FatalError{Err: errors.Wrap(err, "writing central directory")})
		}
		a.offset += uint64(len(b))
	}

	if _, err := a.w.Write(directoryEnd(uint16(len(a.entries)), uint32(size), uint32(start))); err != nil {
		return 0, a.abort(&FatalError{Err: errors.Wrap(err, "writing end of central directory")})
	}
	a.offset += directoryEndLen

	if c, ok := a.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return 0, a.abort(&FatalError{Err: errors.Wrap(err, "closing")})
		}
	}

	a.log.WithFields(log.Fields{
		"files_filtered":    a.stats.FilesFiltered,
		"dirs_filtered":     a.stats.DirsFiltered,
		"files_added":       a.stats.FilesAdded,
		"size_uncompressed": humanize.Bytes(uint64(a.stats.SizeUncompressed)),
		"size_compressed":   humanize.Bytes(uint64(a.stats.SizeCompressed)),
		"size":              humanize.Bytes(a.offset),
	}).Debug("stats")

	a.log.Debug("close")
	return int64(a.offset), nil
}

// closedTicket returns the turn of the first entry.
func closedTicket() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
