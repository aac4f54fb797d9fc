package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// FrameFunc is called after each complete MJPEG frame with the running count.
type FrameFunc func(frames int)

// ReadFeed consumes the multipart MJPEG stream at url until ctx is cancelled
// or the stream ends, calling onFrame after each frame. A stream that ends
// because ctx was cancelled returns nil.
func (c *Client) ReadFeed(ctx context.Context, url string, onFrame FrameFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}
	// The feed never completes, so it cannot share the request timeout.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: url, StatusCode: resp.StatusCode}
	}

	boundary, err := feedBoundary(resp.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	reader := multipart.NewReader(resp.Body, boundary)
	frames := 0
	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read feed part: %w", err)
		}
		if _, err := io.Copy(io.Discard, part); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read feed frame: %w", err)
		}
		frames++
		if onFrame != nil {
			onFrame(frames)
		}
	}
}

func feedBoundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parse feed content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("feed is %q, not multipart", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", errors.New("feed content type has no boundary")
	}
	return boundary, nil
}
