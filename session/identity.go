// Package session owns the state of the song being played: its identity,
// its resolved lyrics and translations, the candidate/lock machine and the
// highlighter. Every pipeline commits through one Manager, which drops results
// that belong to a song no longer playing.
package session

import (
	"regexp"
	"strings"

	"lyrics-sync-go/services/providers"
)

// Identity names one song.
type Identity struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	VideoID string `json:"videoId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Key is the cache and log key of the song.
func (id Identity) Key() string {
	return id.Title + "///" + id.Artist
}

// Valid reports whether the identity names anything a provider can search for.
func (id Identity) Valid() bool {
	return strings.TrimSpace(id.Title) != "" || id.VideoID != "" || id.URL != ""
}

// Request builds the provider request for the identity.
func (id Identity) Request() providers.Request {
	return providers.Request{
		Track:     CleanTitle(id.Title),
		Artist:    strings.TrimSpace(id.Artist),
		SourceURL: id.URL,
		SourceID:  id.VideoID,
	}
}

var (
	bracketed   = regexp.MustCompile(`\s*[\(\[【（][^\)\]】）]*[\)\]】）]`)
	dashedExtra = regexp.MustCompile(`(?i)\s+[-–—]\s+.*\b(official|video|audio|lyrics?|mv|live|remaster(ed)?|ver(sion)?)\b.*$`)
	featuring   = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?)\s+.*$`)
)

// CleanTitle strips bracketed notes, "feat." credits and dashed suffixes such
// as "- Official Video" so the title matches catalog search. A title that would
// become empty is returned trimmed but otherwise unchanged.
func CleanTitle(title string) string {
	cleaned := bracketed.ReplaceAllString(title, "")
	cleaned = featuring.ReplaceAllString(cleaned, "")
	cleaned = dashedExtra.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}
