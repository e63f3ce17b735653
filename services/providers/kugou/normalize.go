package kugou

import (
	"regexp"
	"strings"
)

var (
	timedLineRe = regexp.MustCompile(`^\[\d{2}:\d{2}[.:]\d{2,3}\]`)

	// Credit lines look like "[00:05.00]作曲：someone".
	creditRe = regexp.MustCompile(`^\[\d{2}:\d{2}[.:]\d{2,3}\].+：.+`)
)

const (
	// pureMusicText marks instrumental tracks.
	pureMusicText    = "纯音乐，请欣赏"
	instrumentalLine = "[00:00.00][Instrumental Only]"

	// creditScanLines is how far from either end credits are looked for.
	creditScanLines = 30
)

// normalizeLyrics keeps only timed lines and trims the credit blocks Kugou
// adds at the head and tail. Instrumental tracks become a single line.
func normalizeLyrics(content string) string {
	content = strings.ReplaceAll(content, "&apos;", "'")
	if strings.Contains(content, pureMusicText) {
		return instrumentalLine
	}

	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		if raw = strings.TrimSpace(raw); timedLineRe.MatchString(raw) {
			lines = append(lines, raw)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	// Everything up to the last credit near the head goes, titles included.
	// The head is at most the first half so short lyrics keep their body.
	head := 0
	for i := min(creditScanLines, (len(lines)+1)/2) - 1; i >= 0; i-- {
		if creditRe.MatchString(lines[i]) {
			head = i + 1
			break
		}
	}

	end := len(lines)
	for i := 0; i < creditScanLines && len(lines)-1-i >= head; i++ {
		if creditRe.MatchString(lines[len(lines)-1-i]) {
			end = len(lines) - 1 - i
			break
		}
	}

	return strings.Join(lines[head:end], "\n")
}
