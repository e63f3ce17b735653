package lrchub

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

// CandidateSet is what the candidates endpoint reports for a song.
type CandidateSet struct {
	Candidates          []candidates.Candidate
	HasSelectCandidates bool
	Config              *candidates.Config
	Requests            []candidates.Request
}

// MergeInto folds the set into a lyrics result. The candidate flag is
// sticky, the endpoint's config wins when present and its requests only
// replace the lyrics response's when non-empty.
func (s CandidateSet) MergeInto(r *providers.Result) {
	r.Candidates = s.Candidates
	r.HasSelectCandidates = r.HasSelectCandidates || s.HasSelectCandidates
	if s.Config != nil {
		r.Config = *s.Config
	}
	if len(s.Requests) > 0 {
		r.Requests = s.Requests
	}
}

// BuildCandidatesURL resolves the candidates endpoint for a song. A URL
// advertised by the service is resolved against base, given base's scheme
// and asked to include lyrics. Without one the endpoint is derived from the
// video id. Neither yields "".
func BuildCandidatesURL(base, advertised, videoID string) string {
	root, err := url.Parse(base)
	if err != nil {
		return ""
	}

	if advertised != "" {
		ref, err := url.Parse(advertised)
		if err != nil {
			log.Warnf("%s Invalid candidates url %q: %v", logcolors.LogCandidates, advertised, err)
			return advertised
		}
		u := root.ResolveReference(ref)
		u.Scheme = root.Scheme
		q := u.Query()
		if !q.Has("include_lyrics") {
			q.Set("include_lyrics", "1")
			u.RawQuery = q.Encode()
		}
		return u.String()
	}

	if videoID == "" {
		return ""
	}
	q := url.Values{}
	q.Set("video_id", videoID)
	q.Set("include_lyrics", "1")
	return strings.TrimRight(base, "/") + "/api/lyrics_candidates?" + q.Encode()
}

// FetchCandidates reads the candidates endpoint. Failures are logged and
// produce an empty set; they never fail the lyrics lookup.
func (p *Provider) FetchCandidates(ctx context.Context, candidatesURL string) CandidateSet {
	if candidatesURL == "" {
		return CandidateSet{}
	}

	_, body, err := p.client.Send(ctx, http.MethodGet, candidatesURL, nil)
	if err != nil {
		log.Warnf("%s Candidates request failed: %v", logcolors.LogCandidates, err)
		return CandidateSet{}
	}

	var resp candidatesResponse
	if err := providers.Decode(envelope(body), &resp); err != nil {
		log.Warnf("%s Candidates response unreadable: %v", logcolors.LogCandidates, err)
		return CandidateSet{}
	}

	wire := decodeList[wireCandidate](resp.Candidates)
	set := CandidateSet{
		Config:   decodeConfig(resp.Config),
		Requests: toRequests(resp.Requests),
	}
	for _, w := range wire {
		set.Candidates = append(set.Candidates, w.toCandidate())
	}
	set.HasSelectCandidates = len(set.Candidates) > 1

	log.Debugf("%s %d candidates, %d requests", logcolors.LogCandidates, len(set.Candidates), len(set.Requests))
	return set
}
