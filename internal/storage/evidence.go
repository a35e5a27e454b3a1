package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/meritscore/internal/apperr"
)

const (
	evidencePrefix     = "evidence/"
	DefaultMaxEvidence = 10 << 20
)

var pdfMagic = []byte("%PDF-")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// EvidenceStore accepts PDF documents only and hands back opaque references.
type EvidenceStore struct {
	blobs    BlobStore
	maxBytes int64
	now      func() time.Time
}

func NewEvidenceStore(blobs BlobStore, maxBytes int64) *EvidenceStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxEvidence
	}
	return &EvidenceStore{blobs: blobs, maxBytes: maxBytes, now: time.Now}
}

// Store validates and saves a document, returning its reference.
func (e *EvidenceStore) Store(ctx context.Context, r io.Reader, filename string) (string, error) {
	const op = "evidence.Store"
	if r == nil || strings.TrimSpace(filename) == "" {
		return "", apperr.Validation(op, "evidence file required")
	}
	if !strings.EqualFold(path.Ext(filename), ".pdf") {
		return "", apperr.Validation(op, "evidence must be a PDF document")
	}
	br := bufio.NewReader(io.LimitReader(r, e.maxBytes+1))
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("evidence: read: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return "", apperr.Validation(op, "evidence must be a PDF document")
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return "", fmt.Errorf("evidence: read: %w", err)
	}
	if int64(len(body)) > e.maxBytes {
		return "", apperr.Validation(op, "evidence exceeds %d bytes", e.maxBytes)
	}

	base := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, `\`, "/")), "_")
	key := fmt.Sprintf("%s%s/%s_%s", evidencePrefix, e.now().UTC().Format("20060102"), uuid.NewString(), base)
	ref, err := e.blobs.Put(ctx, key, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("evidence: put: %w", err)
	}
	return ref, nil
}

// Fetch opens a stored document.
func (e *EvidenceStore) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	const op = "evidence.Fetch"
	if !validRef(ref) {
		return nil, apperr.NotFound(op, "evidence %q not found", ref)
	}
	rc, err := e.blobs.Get(ctx, ref)
	if errors.Is(err, ErrNotExist) {
		return nil, apperr.NotFound(op, "evidence %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("evidence: get: %w", err)
	}
	return rc, nil
}

// Link returns a direct download URL for a stored document.
func (e *EvidenceStore) Link(ctx context.Context, ref string) (string, error) {
	const op = "evidence.Link"
	if !validRef(ref) {
		return "", apperr.NotFound(op, "evidence %q not found", ref)
	}
	u, err := e.blobs.SignedURL(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("evidence: link: %w", err)
	}
	return u, nil
}

// Discard removes a stored document. Unknown references are ignored.
func (e *EvidenceStore) Discard(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return nil
	}
	if err := e.blobs.Delete(ctx, ref); err != nil {
		return fmt.Errorf("evidence: delete: %w", err)
	}
	return nil
}

func validRef(ref string) bool {
	return strings.HasPrefix(ref, evidencePrefix) && !strings.Contains(ref, "..")
}

// DisplayName strips the generated prefix from a reference.
func DisplayName(ref string) string {
	base := path.Base(ref)
	if i := strings.IndexByte(base, '_'); i > 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return base
}
