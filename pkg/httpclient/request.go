package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/EcMarius/secprobe/pkg/defaults"
)

// Request describes one probe request. Build it with NewRequest, JSON or
// Multipart and adjust the exported fields before calling Client.Do.
type Request struct {
	Method     string
	URL        string
	Header     http.Header
	Cookies    []*http.Cookie
	Timeout    time.Duration
	NoRedirect bool

	body func() (io.Reader, string, error)
}

// NewRequest returns a request without a body.
func NewRequest(method, url string) *Request {
	return &Request{Method: method, URL: url, Header: http.Header{}}
}

// JSON returns a request whose body is payload encoded as JSON.
func JSON(method, url string, payload any) *Request {
	r := NewRequest(method, url)
	r.Header.Set("Accept", defaults.ContentTypeJSON)
	r.body = func() (io.Reader, string, error) {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: encode json: %v", ErrInvalidRequest, err)
		}
		return bytes.NewReader(data), defaults.ContentTypeJSON, nil
	}
	return r
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// Multipart returns a POST request uploading files. The body is streamed,
// so large contents are never held in memory.
func Multipart(url string, files ...File) *Request {
	r := NewRequest(http.MethodPost, url)
	r.body = func() (io.Reader, string, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			pw.CloseWithError(writeParts(mw, files))
		}()
		return pr, mw.FormDataContentType(), nil
	}
	return r
}

func writeParts(mw *multipart.Writer, files []File) error {
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = defaults.ContentTypeOctet
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if f.Content != nil {
			if _, err := io.Copy(part, f.Content); err != nil {
				return err
			}
		}
	}
	return mw.Close()
}

// SetBearer sets an Authorization bearer token.
func (r *Request) SetBearer(token string) *Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func (r *Request) build(ctx context.Context) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	if r.body != nil {
		var err error
		body, contentType, err = r.body()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		if c, ok := body.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range r.Cookies {
		req.AddCookie(c)
	}
	return req, nil
}
