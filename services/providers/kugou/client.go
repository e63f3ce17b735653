package kugou

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"lyrics-sync-go/lyrics/script"
	"lyrics-sync-go/services/providers"
)

// searchSongs finds songs matching keyword. Only their hashes are needed.
func (p *Provider) searchSongs(ctx context.Context, keyword string) ([]SongInfo, error) {
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("pagesize", "10")
	params.Set("page", "1")
	params.Set("plat", "0")
	params.Set("version", "9108")

	var resp songSearchResponse
	if err := p.client.GetJSON(ctx, p.searchURL+"/api/v3/search/song?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != 1 {
		return nil, fmt.Errorf("%w: song search status %d, errcode %d", providers.ErrContractViolation, resp.Status, resp.ErrCode)
	}
	return resp.Data.Info, nil
}

// searchLyrics lists the lyrics files for a song hash.
func (p *Provider) searchLyrics(ctx context.Context, keyword, hash string) ([]LyricsCandidate, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("man", "yes")
	params.Set("client", "mobi")
	params.Set("keyword", keyword)
	params.Set("hash", hash)

	var resp lyricsSearchResponse
	if err := p.client.GetJSON(ctx, p.lyricsURL+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("%w: %s (code %d)", providers.ErrContractViolation, resp.ErrMsg, resp.ErrCode)
	}
	return resp.Candidates, nil
}

// download fetches one lyrics file as LRC text.
func (p *Provider) download(ctx context.Context, c LyricsCandidate) (string, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("client", "pc")
	params.Set("id", c.ID)
	params.Set("accesskey", c.AccessKey)
	params.Set("fmt", "lrc")

	var resp downloadResponse
	if err := p.client.GetJSON(ctx, p.lyricsURL+"/download?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if resp.Status != 200 {
		return "", fmt.Errorf("%w: %s (code %d)", providers.ErrContractViolation, resp.Info, resp.ErrorCode)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("%w: empty lyrics content", providers.ErrNotFound)
	}
	return decodeContent(resp.Content)
}

func decodeContent(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrMalformedResponse, err)
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

// nameScore rates how well got matches want after normalization.
func nameScore(got, want string, exact, partial int) int {
	g, w := script.Normalize(got), script.Normalize(want)
	switch {
	case g == "" || w == "":
		return 0
	case g == w:
		return exact
	case strings.Contains(g, w) || strings.Contains(w, g):
		return partial
	default:
		return 0
	}
}

// Maximum raw scores, used to normalize into 0-1.
const (
	maxSongScore      = 30 + 25 + 3
	maxCandidateScore = 60 + 20 + 20 + 20 + 5
)

// pickSong returns the best song hit and its score in 0-1.
func pickSong(songs []SongInfo, track, artist string) (*SongInfo, float64) {
	var best *SongInfo
	bestScore := -1
	for i := range songs {
		s := &songs[i]
		score := nameScore(s.SongName, track, 30, 15) + nameScore(s.SingerName, artist, 25, 10)
		if s.SQHash != "" {
			score += 2
		}
		if s.Hash320 != "" {
			score++
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return best, clamp(float64(bestScore) / maxSongScore)
}

// pickCandidate prefers synced and official lyrics whose names match.
func pickCandidate(cands []LyricsCandidate, track, artist string) (*LyricsCandidate, float64) {
	var best *LyricsCandidate
	bestScore := -1
	for i := range cands {
		c := &cands[i]
		score := c.Score + nameScore(c.Song, track, 20, 10) + nameScore(c.Singer, artist, 20, 10)
		if c.KRCType == 1 {
			score += 20
		}
		if strings.Contains(c.ProductFrom, "官方") {
			score += 5
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, clamp(float64(bestScore) / maxCandidateScore)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
