package transfer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
)

// Source is somewhere an archive can be streamed from
type Source interface {
	// Open returns the byte stream and its size, -1 if unknown
	Open(ctx context.Context) (io.ReadCloser, int64, error)
	// Location names the source for logs and failure reasons
	Location() string
}

// FileSource reads an archive already on disk
type FileSource struct {
	Path string
}

// Open implements Source
func (s FileSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Location implements Source
func (s FileSource) Location() string {
	return s.Path
}

// HTTPSource fetches an archive over HTTP
type HTTPSource struct {
	URL    string
	client *Client
}

// Open implements Source
func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	return s.client.Open(ctx, s.URL)
}

// Location implements Source
func (s HTTPSource) Location() string {
	return s.URL
}

// Resolver picks the transfer source of an app archive
type Resolver struct {
	client  *Client
	baseURL string
}

// NewResolver creates a resolver. baseURL may be empty.
func NewResolver(client *Client, baseURL string) *Resolver {
	return &Resolver{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve returns, in order of preference: the descriptor's download_url,
// the archive file beside the descriptor in appDir, or the archive under
// the configured download host.
func (r *Resolver) Resolve(meta types.AppMetadata, appDir, fileName string) (Source, error) {
	if raw, ok := meta.Get(types.MetaDownloadURL); ok {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, types.NewError(types.CodeInvalidMetadata,
				fmt.Sprintf("download_url %q is not an http(s) URL", raw), types.ErrInvalidMetadata)
		}
		return HTTPSource{URL: raw, client: r.client}, nil
	}

	if appDir != "" {
		local := filepath.Join(appDir, fileName)
		if info, err := os.Stat(local); err == nil && info.Mode().IsRegular() {
			return FileSource{Path: local}, nil
		}
	}

	if r.baseURL != "" {
		return HTTPSource{URL: r.baseURL + "/downloads/" + url.PathEscape(fileName), client: r.client}, nil
	}

	return nil, types.NewError(types.CodeNotFound,
		fmt.Sprintf("no transfer source for %s", fileName), types.ErrNotFound)
}
