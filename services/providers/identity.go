package providers

import (
	"net/url"
	"strings"
)

// VideoIDFromURL extracts the media id from a watch URL. Short links carry
// the id as their path, long ones in the "v" query parameter.
func VideoIDFromURL(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Hostname() == "youtu.be" {
		return strings.TrimPrefix(u.Path, "/")
	}
	return u.Query().Get("v")
}

// VideoID returns req.SourceID, or the id extracted from req.SourceURL.
func (r Request) VideoID() string {
	if r.SourceID != "" {
		return r.SourceID
	}
	return VideoIDFromURL(r.SourceURL)
}
