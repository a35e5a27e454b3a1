package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/apperr"
)

func newEvidence(t *testing.T, max int64) *EvidenceStore {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return NewEvidenceStore(fs, max)
}

func TestEvidenceRoundTrip(t *testing.T) {
	ev := newEvidence(t, 0)
	ctx := context.Background()
	doc := []byte("%PDF-1.7\nhello")

	ref, err := ev.Store(ctx, bytes.NewReader(doc), "My Certificate (final).PDF")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "evidence/"))
	assert.Equal(t, "My_Certificate_final_.PDF", DisplayName(ref))

	rc, err := ev.Fetch(ctx, ref)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestEvidenceRejectsNonPDF(t *testing.T) {
	ev := newEvidence(t, 0)
	ctx := context.Background()

	_, err := ev.Store(ctx, strings.NewReader("%PDF-1.4"), "scan.png")
	assert.True(t, apperr.IsValidation(err))

	_, err = ev.Store(ctx, strings.NewReader("PK\x03\x04"), "fake.pdf")
	assert.True(t, apperr.IsValidation(err))

	_, err = ev.Store(ctx, strings.NewReader(""), "empty.pdf")
	assert.True(t, apperr.IsValidation(err))

	_, err = ev.Store(ctx, nil, "")
	assert.True(t, apperr.IsValidation(err))
}

func TestEvidenceSizeLimit(t *testing.T) {
	ev := newEvidence(t, 16)
	_, err := ev.Store(context.Background(), strings.NewReader("%PDF-"+strings.Repeat("x", 32)), "big.pdf")
	assert.True(t, apperr.IsValidation(err))
}

func TestEvidenceFetchUnknown(t *testing.T) {
	ev := newEvidence(t, 0)
	ctx := context.Background()
	_, err := ev.Fetch(ctx, "evidence/20240101/nothing.pdf")
	assert.True(t, apperr.IsNotFound(err))
	_, err = ev.Fetch(ctx, "../../etc/passwd")
	assert.True(t, apperr.IsNotFound(err))
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	_, err = fs.Put(context.Background(), "../outside", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestEvidenceLink(t *testing.T) {
	ev := newEvidence(t, 0)
	ctx := context.Background()
	ref, err := ev.Store(ctx, strings.NewReader("%PDF-1.4\n"), "award.pdf")
	require.NoError(t, err)

	u, err := ev.Link(ctx, ref)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "_award.pdf"))

	_, err = ev.Link(ctx, "../etc/passwd")
	assert.True(t, apperr.IsNotFound(err))
}

func TestEvidenceDiscard(t *testing.T) {
	ev := newEvidence(t, 0)
	ctx := context.Background()
	ref, err := ev.Store(ctx, strings.NewReader("%PDF-1.4\n"), "award.pdf")
	require.NoError(t, err)

	require.NoError(t, ev.Discard(ctx, ref))
	_, err = ev.Fetch(ctx, ref)
	assert.True(t, apperr.IsNotFound(err))

	// already gone, or not an evidence ref
	assert.NoError(t, ev.Discard(ctx, ref))
	assert.NoError(t, ev.Discard(ctx, "../etc/passwd"))
}
