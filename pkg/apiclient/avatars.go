package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// AvatarOptions selects how an avatar is rendered.
type AvatarOptions struct {
	// Name is the display name used for the placeholder letter.
	Name string

	// Format is png, jpeg or bmp. Empty means png.
	Format string

	// Fallback skips the photo lookup and returns the placeholder.
	Fallback bool
}

// Avatar is an encoded avatar.
type Avatar struct {
	Data        []byte
	ContentType string

	// Source is where the server got it: cache, photo or fallback.
	Source string
}

// Avatar fetches the avatar for address.
func (c *Client) Avatar(ctx context.Context, address string, opts AvatarOptions) (*Avatar, error) {
	q := url.Values{}
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}
	if opts.Format != "" {
		q.Set("format", opts.Format)
	}
	if opts.Fallback {
		q.Set("fallback", "1")
	}

	resp, err := c.send(ctx, http.MethodGet, "/api/v1/avatars/"+escapeAddress(address), q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}

	return &Avatar{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Source:      resp.Header.Get("X-Avatar-Source"),
	}, nil
}
