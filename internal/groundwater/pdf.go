package groundwater

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/couchcryptid/groundwater-client/internal/adapter/api"
)

const (
	contentTypePDF = "application/pdf"

	// snippetLen is how much of an unexpected body is kept for the error.
	snippetLen = 300
)

// filenameRe is the lenient fallback for Content-Disposition values that
// mime.ParseMediaType rejects.
var filenameRe = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)

// Document is a downloaded binary report.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UnexpectedContentError is returned when a PDF endpoint answers 2xx with
// something other than a PDF.
type UnexpectedContentError struct {
	ContentType string
	Snippet     string
}

func (e *UnexpectedContentError) Error() string {
	return fmt.Sprintf("unexpected response (content-type=%s): %s", e.ContentType, e.Snippet)
}

// download fetches a PDF. r may be nil for a plain GET.
func (s *Service) download(ctx context.Context, p string, r *api.Request, defaultName, fallback string) (*Document, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	var req api.Request
	if r != nil {
		req = *r
	}
	resp, err := s.client.Do(ctx, p, req)
	if err != nil {
		return nil, describe(err, fallback)
	}
	defer resp.Body.Close()

	if !api.IsSuccess(resp.StatusCode) {
		return nil, describe(api.ReadError(resp), fallback)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), contentTypePDF) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLen*4))
		return nil, &UnexpectedContentError{ContentType: contentType, Snippet: truncate(string(body), snippetLen)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", fallback, err)
	}
	return &Document{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition"), defaultName),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// attachmentName extracts the filename parameter, reduced to its base name.
func attachmentName(disposition, defaultName string) string {
	var name string
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name = params["filename"]
	} else if m := filenameRe.FindStringSubmatch(disposition); m != nil {
		name = m[1]
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return defaultName
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
