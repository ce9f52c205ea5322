package handlertest

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
)

// Part is one file of a multipart body.
type Part struct {
	Field       string
	Name        string
	ContentType string
	Body        []byte
}

// Multipart encodes fields and parts and returns the body and its content type.
func Multipart(t *testing.T, fields map[string]string, parts ...Part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Field, p.Name))
		h.Set("Content-Type", p.ContentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part %s: %v", p.Name, err)
		}
		if _, err := pw.Write(p.Body); err != nil {
			t.Fatalf("write part %s: %v", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}
