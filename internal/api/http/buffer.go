package http

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
)

type bufferedResponse struct{ bytes.Buffer }

func (b *bufferedResponse) send(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(b.Len()))
	_, _ = b.WriteTo(w)
}
