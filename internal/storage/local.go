// Package storage keeps attachment bytes on local disk under one directory
// per ticket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrTooLarge is returned when an upload exceeds the size limit.
var ErrTooLarge = errors.New("storage: file exceeds size limit")

// ErrInvalidName is returned for names that could escape the ticket directory.
var ErrInvalidName = errors.New("storage: invalid file name")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// StoredFile describes a saved upload.
type StoredFile struct {
	// Name is the sanitized on-disk name, unique within the ticket.
	Name string
	// PublicPath is the value recorded on the attachment, "/uploads/<ticket>/<name>".
	PublicPath string
	Size       int64
}

// LocalStore writes files beneath root.
type LocalStore struct {
	root     string
	maxBytes int64
	now      func() time.Time
}

// NewLocalStore builds a store. maxBytes <= 0 disables the limit.
func NewLocalStore(root string, maxBytes int64) *LocalStore {
	return &LocalStore{root: root, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes reports the configured upload limit.
func (s *LocalStore) MaxBytes() int64 { return s.maxBytes }

// SanitizeName replaces everything outside [a-zA-Z0-9.-] with underscores.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

// Save streams r to disk. The write is aborted and the partial file removed
// once more than maxBytes have been read.
func (s *LocalStore) Save(ctx context.Context, ticketID, originalName string, r io.Reader) (StoredFile, error) {
	if err := validSegment(ticketID); err != nil {
		return StoredFile{}, err
	}
	dir := filepath.Join(s.root, ticketID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return StoredFile{}, fmt.Errorf("create upload dir: %w", err)
	}

	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	safe := SanitizeName(originalName)
	var (
		name string
		path string
		f    *os.File
		err  error
	)
	// Same-millisecond uploads of the same name get a numeric suffix.
	for attempt := 0; attempt < 10; attempt++ {
		name = stamp + "-" + safe
		if attempt > 0 {
			name = stamp + "-" + strconv.Itoa(attempt) + "-" + safe
		}
		path = filepath.Join(dir, name)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return StoredFile{}, fmt.Errorf("create upload: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, copyErr := io.Copy(f, contextReader{ctx: ctx, r: src})
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("close upload: %w", closeErr)
	case s.maxBytes > 0 && size > s.maxBytes:
		_ = os.Remove(path)
		return StoredFile{}, ErrTooLarge
	}

	return StoredFile{Name: name, PublicPath: PublicPath(ticketID, name), Size: size}, nil
}

// PublicPath is the recorded path for a stored file.
func PublicPath(ticketID, name string) string {
	return "/uploads/" + ticketID + "/" + name
}

// Open returns the file for reading. Callers must close it.
func (s *LocalStore) Open(ticketID, name string) (*os.File, error) {
	if err := validSegment(ticketID); err != nil {
		return nil, err
	}
	if err := validSegment(name); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.root, ticketID, name))
}

// Remove deletes one stored file.
func (s *LocalStore) Remove(ticketID, name string) error {
	if err := validSegment(ticketID); err != nil {
		return err
	}
	if err := validSegment(name); err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.root, ticketID, name))
}

// RemoveTicket deletes every file stored for a ticket.
func (s *LocalStore) RemoveTicket(ticketID string) error {
	if err := validSegment(ticketID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.root, ticketID))
}

func validSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
		return ErrInvalidName
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
