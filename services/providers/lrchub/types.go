package lrchub

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/lyrics/lrc"
)

// looseString accepts a JSON string or number and ignores every other type.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = looseString(data)
	default:
		*s = ""
	}
	return nil
}

// looseBool treats only JSON true (or the string "true") as true.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	v := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	*b = looseBool(v == "true")
	return nil
}

// millis is a timestamp sent either as a number or a numeric string.
type millis struct {
	value int64
	valid bool
}

func (m *millis) UnmarshalJSON(data []byte) error {
	*m = millis{}
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*m = millis{valid: true}
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*m = millis{value: int64(math.Round(f)), valid: true}
	return nil
}

// envelope unwraps the optional {"response": {...}} wrapper.
func envelope(body []byte) []byte {
	var wrapped struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return body
	}
	trimmed := bytes.TrimSpace(wrapped.Response)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed
	}
	return body
}

// decodeList decodes a JSON array leniently. Anything else yields nil.
func decodeList[T any](raw json.RawMessage) []T {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil
	}
	return out
}

// decodeConfig returns nil unless raw is a JSON object.
func decodeConfig(raw json.RawMessage) *candidates.Config {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var w struct {
		SyncLocked    looseBool `json:"SyncLocked"`
		DynamicLocked looseBool `json:"dynmicLock"`
	}
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil
	}
	return &candidates.Config{SyncLocked: bool(w.SyncLocked), DynamicLocked: bool(w.DynamicLocked)}
}

type lyricsResponse struct {
	HasSelectCandidates looseBool       `json:"has_select_candidates"`
	Config              json.RawMessage `json:"config"`
	Requests            json.RawMessage `json:"requests"`
	DynamicLyrics       *struct {
		Lines json.RawMessage `json:"lines"`
	} `json:"dynamic_lyrics"`
	SyncedLyrics     looseString `json:"synced_lyrics"`
	PlainLyrics      looseString `json:"plain_lyrics"`
	CandidatesAPIURL looseString `json:"candidates_api_url"`
	VideoID          looseString `json:"video_id"`
}

type wireChar struct {
	C       looseString `json:"c"`
	Text    looseString `json:"text"`
	Caption looseString `json:"caption"`
	T       millis      `json:"t"`
}

func (c wireChar) text() string {
	switch {
	case c.C != "":
		return string(c.C)
	case c.Text != "":
		return string(c.Text)
	default:
		return string(c.Caption)
	}
}

type wireLine struct {
	StartTimeMs millis      `json:"startTimeMs"`
	Text        looseString `json:"text"`
	Chars       []wireChar  `json:"chars"`
}

func (w wireLine) toDynamic() lrc.DynamicLine {
	line := lrc.DynamicLine{
		StartMs: w.StartTimeMs.value,
		HasTime: w.StartTimeMs.valid,
		Text:    string(w.Text),
		Chars:   make([]lrc.Char, 0, len(w.Chars)),
	}
	for _, c := range w.Chars {
		line.Chars = append(line.Chars, lrc.Char{Text: c.text(), StartMs: c.T.value})
	}
	return line
}

type wireCandidate struct {
	ID        looseString `json:"id"`
	Title     looseString `json:"title"`
	Artist    looseString `json:"artist"`
	Source    looseString `json:"source"`
	Path      looseString `json:"path"`
	Lyrics    looseString `json:"lyrics"`
	HasSynced looseBool   `json:"has_synced"`
}

func (w wireCandidate) toCandidate() candidates.Candidate {
	return candidates.Candidate{
		ID:        string(w.ID),
		Title:     string(w.Title),
		Artist:    string(w.Artist),
		Source:    string(w.Source),
		Path:      string(w.Path),
		Lyrics:    string(w.Lyrics),
		HasSynced: bool(w.HasSynced),
	}
}

type wireRequest struct {
	ID        looseString   `json:"id"`
	Request   looseString   `json:"request"`
	Label     looseString   `json:"label"`
	Target    looseString   `json:"target"`
	Aliases   []looseString `json:"aliases"`
	HasLyrics looseBool     `json:"has_lyrics"`
	Locked    looseBool     `json:"locked"`
	Available *looseBool    `json:"available"`
}

func (w wireRequest) toRequest() candidates.Request {
	r := candidates.Request{
		ID:        string(w.ID),
		Request:   string(w.Request),
		Label:     string(w.Label),
		Target:    candidates.TargetKind(strings.ToLower(string(w.Target))),
		HasLyrics: bool(w.HasLyrics),
		Locked:    bool(w.Locked),
		Available: !bool(w.Locked),
	}
	if w.Available != nil {
		r.Available = bool(*w.Available)
	}
	for _, a := range w.Aliases {
		if a != "" {
			r.Aliases = append(r.Aliases, string(a))
		}
	}
	return r
}

func toRequests(raw json.RawMessage) []candidates.Request {
	wire := decodeList[wireRequest](raw)
	if len(wire) == 0 {
		return nil
	}
	out := make([]candidates.Request, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toRequest())
	}
	return out
}

type candidatesResponse struct {
	Candidates json.RawMessage `json:"candidates"`
	Config     json.RawMessage `json:"config"`
	Requests   json.RawMessage `json:"requests"`
}

type lyricsPayload struct {
	Track      string `json:"track"`
	Artist     string `json:"artist"`
	YouTubeURL string `json:"youtube_url"`
	VideoID    string `json:"video_id"`
}

type statusResponse struct {
	OK      looseBool   `json:"ok"`
	Error   looseString `json:"error"`
	Message looseString `json:"message"`
	Code    looseString `json:"code"`
}

func (s statusResponse) reason() string {
	switch {
	case s.Error != "":
		return string(s.Error)
	case s.Message != "":
		return string(s.Message)
	case s.Code != "":
		return string(s.Code)
	default:
		return "unknown error"
	}
}
