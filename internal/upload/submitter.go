package upload

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/trajector/portal/internal/documents"
	"github.com/trajector/portal/internal/events"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/notify"
)

const (
	msgUploadRejected = "Upload failed. Please try again."
	msgUploadError    = "An error occurred during upload."
)

// Uploader performs the multipart POST of one batch.
type Uploader interface {
	Upload(ctx context.Context, req model.UploadRequest) error
}

// Submitter sends a batch and reports the outcome as a notification. It never
// retries.
type Submitter struct {
	uploader Uploader
	notifier notify.Notifier
	events   events.Publisher
}

func NewSubmitter(u Uploader, n notify.Notifier, p events.Publisher) *Submitter {
	if p == nil {
		p = events.Nop{}
	}
	return &Submitter{uploader: u, notifier: n, events: p}
}

func (s *Submitter) Submit(ctx context.Context, req model.UploadRequest) error {
	n := len(req.Files)
	attrs := map[string]string{"files": strconv.Itoa(n), "name": req.Identity.Name}

	err := s.uploader.Upload(ctx, req)
	if err == nil {
		s.notifier.Notify(model.NotifySuccess, fmt.Sprintf("%s uploaded to Trajector.", Documents(n)))
		events.Emit(ctx, s.events, events.New(events.UploadSubmitted, attrs))
		return nil
	}

	msg := msgUploadError
	var netErr *documents.NetworkError
	if errors.As(err, &netErr) && !netErr.Transport() {
		msg = msgUploadRejected
	}
	s.notifier.Notify(model.NotifyError, msg)

	attrs["error"] = err.Error()
	events.Emit(ctx, s.events, events.New(events.UploadFailed, attrs))
	return fmt.Errorf("submit %s: %w", Documents(n), err)
}

// Documents renders a count as "1 document" or "n documents".
func Documents(n int) string {
	if n == 1 {
		return "1 document"
	}
	return strconv.Itoa(n) + " documents"
}
