package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/starford/tasknote/internal/wire"
)

// UploadImage sends an image as multipart field "file" and returns the URL to
// embed in Markdown.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", nil, pr)
	if err != nil {
		_ = pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out wire.UploadResponse
	if err := c.send(req, &out); err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("client: upload answered without url")
	}
	return out.URL, nil
}
