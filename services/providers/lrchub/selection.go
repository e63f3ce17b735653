package lrchub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

// ErrMissingChoice is returned when a selection names neither a candidate
// nor a lock request.
var ErrMissingChoice = errors.New("missing candidate_id or request")

// Selection is a candidate pick or a lock request for one song.
type Selection struct {
	SourceURL   string
	SourceID    string
	CandidateID string
	Request     string
	Lock        bool
}

type selectPayload struct {
	YouTubeURL  string `json:"youtube_url,omitempty"`
	VideoID     string `json:"video_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
	Request     string `json:"request,omitempty"`
	Lock        string `json:"lock"`
}

// Select reports a candidate choice or a lock to the service.
func (p *Provider) Select(ctx context.Context, s Selection) error {
	if s.SourceURL == "" && s.SourceID == "" {
		return ErrMissingTarget
	}
	if s.CandidateID == "" && s.Request == "" {
		return ErrMissingChoice
	}

	payload := selectPayload{
		CandidateID: s.CandidateID,
		Request:     s.Request,
		Lock:        strconv.FormatBool(s.Lock),
	}
	if s.SourceURL != "" {
		payload.YouTubeURL = s.SourceURL
	} else {
		payload.VideoID = s.SourceID
	}

	var resp statusResponse
	status, err := p.client.SendJSON(ctx, http.MethodPost, p.baseURL+"/api/lyrics_select", payload, &resp)
	if err != nil {
		return providers.NewProviderError(ProviderName, "selection request failed", err)
	}
	if !resp.OK {
		log.Warnf("%s Selection refused (status %d): %s", logcolors.LogLock, status, resp.reason())
		return fmt.Errorf("%w: %s", ErrRejected, resp.reason())
	}

	log.Infof("%s Selection accepted (candidate=%q request=%q lock=%v)", logcolors.LogLock, s.CandidateID, s.Request, s.Lock)
	return nil
}
