package storage

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedObjectURL(t *testing.T) {
	obj := "https://f002.backblazeb2.com/file/merit-evidence/evidence/20240901/abc_award.pdf"
	got := signedObjectURL(obj, "3_20240901_tok+en/=")

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "f002.backblazeb2.com", u.Host)
	assert.Equal(t, "/file/merit-evidence/evidence/20240901/abc_award.pdf", u.Path)
	assert.Equal(t, "3_20240901_tok+en/=", u.Query().Get("Authorization"))
}
