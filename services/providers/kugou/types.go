package kugou

// lyricsSearchResponse is the body of krcs /search.
type lyricsSearchResponse struct {
	Status     int               `json:"status"`
	ErrCode    int               `json:"errcode"`
	ErrMsg     string            `json:"errmsg"`
	Candidates []LyricsCandidate `json:"candidates"`
}

// LyricsCandidate is one lyrics file offered for a song hash.
type LyricsCandidate struct {
	ID          string `json:"id"`
	AccessKey   string `json:"accesskey"`
	ProductFrom string `json:"product_from"`
	Singer      string `json:"singer"`
	Song        string `json:"song"`
	Duration    int    `json:"duration"` // milliseconds
	KRCType     int    `json:"krctype"`  // 1 = synced
	Score       int    `json:"score"`
}

// downloadResponse is the body of krcs /download.
type downloadResponse struct {
	Status    int    `json:"status"`
	Info      string `json:"info"`
	ErrorCode int    `json:"error_code"`
	Content   string `json:"content"` // base64 LRC
}

// songSearchResponse is the body of the song search API.
type songSearchResponse struct {
	Status  int `json:"status"`
	ErrCode int `json:"errcode"`
	Data    struct {
		Info []SongInfo `json:"info"`
	} `json:"data"`
}

// SongInfo is a song hit. Its hash keys the lyrics search.
type SongInfo struct {
	Hash       string `json:"hash"`
	SQHash     string `json:"sqhash"`
	Hash320    string `json:"320hash"`
	SongName   string `json:"songname"`
	SingerName string `json:"singername"`
	Duration   int    `json:"duration"` // seconds
}
