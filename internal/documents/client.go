// Package documents is an HTTP client for the remote document-storage and
// messaging API.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/trajector/portal/internal/model"
)

const (
	foldersPath     = "/api/documents/folders"
	sendMessagePath = "/api/documents/send-message"
	uploadPath      = "/api/documents/upload"
)

// NetworkError reports a transport failure or a non-2xx response.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("documents: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("documents: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Transport reports whether the request never produced a response.
func (e *NetworkError) Transport() bool { return e.StatusCode == 0 }

type Client struct {
	baseURL string
	headers http.Header
	http    *http.Client
}

type Option func(*Client)

// WithHeader attaches a header to every request, e.g. a tunnel proxy marker.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: make(http.Header),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Folders fetches the accepted/rejected document listing.
func (c *Client) Folders(ctx context.Context) (*model.FolderResponse, error) {
	const op = "list folders"

	req, err := c.newRequest(ctx, http.MethodGet, foldersPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out model.FolderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

type sendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendMessage asks the messaging service to deliver message to a phone number.
func (c *Client) SendMessage(ctx context.Context, to, message string) error {
	const op = "send message"

	body, err := json.Marshal(sendMessageRequest{To: to, Message: message})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, sendMessagePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(op, req)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// Upload posts every file as a "file" part, in order, followed by the name
// and phone fields. The batch succeeds or fails as a whole.
func (c *Client) Upload(ctx context.Context, ur model.UploadRequest) error {
	const op = "upload"

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, ur))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, uploadPath, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(op, req)
	if err != nil {
		pr.CloseWithError(err)
		return err
	}
	drain(resp)
	return nil
}

func writeUpload(mw *multipart.Writer, ur model.UploadRequest) error {
	for _, f := range ur.Files {
		if err := writeFilePart(mw, f); err != nil {
			return err
		}
	}
	if err := mw.WriteField("name", ur.Identity.Name); err != nil {
		return err
	}
	if err := mw.WriteField("phone", ur.Identity.Phone); err != nil {
		return err
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, f model.StagedFile) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	ct := f.MIMEHint
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if f.Handle == nil {
		return fmt.Errorf("file %q has no content handle", f.Name)
	}
	rc, err := f.Handle.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copy %q: %w", f.Name, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	return req, nil
}

func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
