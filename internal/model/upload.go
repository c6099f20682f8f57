package model

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileHandle opens the raw bytes of a staged file.
type FileHandle interface {
	Open() (io.ReadCloser, error)
}

// StagedFile is one user-selected file waiting to be submitted.
type StagedFile struct {
	Name     string
	Size     int64
	MIMEHint string
	Handle   FileHandle
}

// Ext returns the lower-cased extension including the dot.
func (f StagedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Identity holds the auxiliary fields sent along with an upload batch.
type Identity struct {
	Name  string
	Phone string
}

// UploadRequest is a drained buffer plus the identity it is submitted under.
type UploadRequest struct {
	Files    []StagedFile
	Identity Identity
}

// DiskFile is a handle to a file spooled on local disk.
type DiskFile string

func (p DiskFile) Open() (io.ReadCloser, error) {
	return os.Open(string(p))
}

// Remove deletes the spooled file.
func (p DiskFile) Remove() error {
	return os.Remove(string(p))
}

// MemFile is an in-memory handle.
type MemFile []byte

func (b MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}
