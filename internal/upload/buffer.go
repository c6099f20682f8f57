// Package upload stages user-selected files and submits them as one batch.
package upload

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/trajector/portal/internal/model"
)

var (
	// ErrEmptySubmission is returned by Submit when nothing is staged.
	// Views ignore it.
	ErrEmptySubmission = errors.New("upload: nothing staged")
	ErrSubmitInFlight  = errors.New("upload: a submission is already in flight")
)

// DefaultAccept is the file picker filter. It is a hint unless StrictAccept is set.
var DefaultAccept = []string{".pdf", ".doc", ".docx", ".txt", ".png", ".jpg", ".jpeg", ".gif", ".zip", ".rar"}

// Sender performs the network submission of a drained batch.
type Sender interface {
	Submit(ctx context.Context, req model.UploadRequest) error
}

type Options struct {
	Accept []string
	// StrictAccept rejects files whose extension is not in Accept.
	StrictAccept bool
	// ExclusiveSubmit refuses a new submission while one is in flight.
	ExclusiveSubmit bool
	// RestoreOnFailure puts a failed batch back in front of the buffer.
	RestoreOnFailure bool
}

// Buffer is an ordered list of staged files. Duplicates are kept; the index
// is the only handle for removal.
type Buffer struct {
	mu       sync.Mutex
	files    []model.StagedFile
	gen      uint64
	inFlight int
	sender   Sender
	opts     Options
}

func NewBuffer(sender Sender, opts Options) *Buffer {
	if opts.Accept == nil {
		opts.Accept = DefaultAccept
	}
	return &Buffer{sender: sender, opts: opts}
}

// AddFiles appends files in the order given. With StrictAccept, files with
// an unlisted extension are skipped and returned.
func (b *Buffer) AddFiles(files ...model.StagedFile) (rejected []model.StagedFile) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range files {
		if b.opts.StrictAccept && !slices.Contains(b.opts.Accept, f.Ext()) {
			rejected = append(rejected, f)
			continue
		}
		b.files = append(b.files, f)
	}
	return rejected
}

// RemoveAt drops the file at index i. Out-of-range indexes are ignored.
func (b *Buffer) RemoveAt(i int) bool {
	b.mu.Lock()
	if i < 0 || i >= len(b.files) {
		b.mu.Unlock()
		return false
	}
	removed := b.files[i]
	b.files = slices.Delete(b.files, i, i+1)
	b.mu.Unlock()

	release(removed)
	return true
}

// Files returns a snapshot of the staged files.
func (b *Buffer) Files() []model.StagedFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.files)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// Generation changes every time a submission drains the buffer. Views use it
// to reset the file picker.
func (b *Buffer) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// AcceptHint renders Accept for an <input type="file" accept="..."> attribute.
func (b *Buffer) AcceptHint() string {
	return strings.Join(b.opts.Accept, ",")
}

// Submit drains the buffer and hands the batch to the Sender in the
// background. The buffer is already empty when Submit returns, whatever the
// eventual outcome.
func (b *Buffer) Submit(ctx context.Context, id model.Identity) (*Pending, error) {
	b.mu.Lock()
	if len(b.files) == 0 {
		b.mu.Unlock()
		return nil, ErrEmptySubmission
	}
	if b.opts.ExclusiveSubmit && b.inFlight > 0 {
		b.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	batch := b.files
	b.files = nil
	b.gen++
	b.inFlight++
	b.mu.Unlock()

	p := &Pending{Count: len(batch), done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.err = b.sender.Submit(ctx, model.UploadRequest{Files: batch, Identity: id})
		b.finish(batch, p.err)
	}()
	return p, nil
}

func (b *Buffer) finish(batch []model.StagedFile, err error) {
	b.mu.Lock()
	b.inFlight--
	if err != nil && b.opts.RestoreOnFailure {
		b.files = append(slices.Clone(batch), b.files...)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	release(batch...)
}

// Pending tracks one in-flight submission.
type Pending struct {
	Count int
	done  chan struct{}
	err   error
}

// Wait blocks until the submission resolves and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

type remover interface {
	Remove() error
}

// release deletes spooled content that is no longer referenced.
func release(files ...model.StagedFile) {
	for _, f := range files {
		if r, ok := f.Handle.(remover); ok {
			if err := r.Remove(); err != nil {
				slog.Debug("upload: release spooled file", "name", f.Name, "err", err)
			}
		}
	}
}
