package upload

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/trajector/portal/internal/media"
	"github.com/trajector/portal/internal/model"
)

// Spooler copies browser uploads to a staging directory so their handles
// outlive the request that delivered them.
type Spooler struct {
	dir           string
	stripMetadata bool
}

type SpoolOption func(*Spooler)

// WithMetadataStripping re-encodes JPEG and PNG uploads without EXIF or GPS
// data. Images that fail to decode are spooled unchanged.
func WithMetadataStripping() SpoolOption {
	return func(s *Spooler) { s.stripMetadata = true }
}

func NewSpooler(dir string, opts ...SpoolOption) (*Spooler, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "portal-staging")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}
	s := &Spooler{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FromForm spools every file under field in the order the browser sent them.
func (s *Spooler) FromForm(form *multipart.Form, field string) ([]model.StagedFile, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File[field]
	files := make([]model.StagedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := s.Spool(fh)
		if err != nil {
			release(files...)
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *Spooler) Spool(fh *multipart.FileHeader) (model.StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return model.StagedFile{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	var in io.Reader = src
	if s.stripMetadata {
		if k := media.KindOf(fh.Filename, fh.Header.Get("Content-Type")); k != media.Other {
			in, err = stripped(src, k, fh.Filename)
			if err != nil {
				return model.StagedFile{}, err
			}
		}
	}

	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102150405"), uuid.NewString(), filepath.Ext(fh.Filename))
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return model.StagedFile{}, fmt.Errorf("create spool file: %w", err)
	}
	written, err := io.Copy(dst, in)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return model.StagedFile{}, fmt.Errorf("spool %q: %w", fh.Filename, err)
	}

	return model.StagedFile{
		Name:     filepath.Base(fh.Filename),
		Size:     written,
		MIMEHint: fh.Header.Get("Content-Type"),
		Handle:   model.DiskFile(path),
	}, nil
}

func stripped(src io.Reader, k media.Kind, filename string) (io.Reader, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", filename, err)
	}
	clean, err := media.StripMetadata(raw, k)
	if err != nil {
		slog.Debug("upload: metadata kept", "name", filename, "err", err)
		return bytes.NewReader(raw), nil
	}
	return bytes.NewReader(clean), nil
}
