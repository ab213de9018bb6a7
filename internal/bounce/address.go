package bounce

import (
	"regexp"
	"strings"
)

var addrRe = regexp.MustCompile(addrPattern)

// Addresses of the reporting system, never the bounced recipient.
var systemLocalParts = map[string]bool{
	"mailer-daemon": true,
	"postmaster":    true,
}

// cleanAddress strips the decoration bounce texts put around addresses:
// angle brackets, quotes, a "type;" prefix and trailing punctuation.
func cleanAddress(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ";"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Trim(s, " \t<>\"'()[]:,;.")
	if !strings.Contains(s, "@") {
		return ""
	}
	return s
}

func isSystemAddress(addr string) bool {
	local, _, _ := strings.Cut(addr, "@")
	return systemLocalParts[strings.ToLower(local)]
}

// firstAddress returns the first recipient-like address in s.
func firstAddress(s string) string {
	for _, loc := range addrRe.FindAllStringIndex(s, -1) {
		if addr := cleanAddress(s[loc[0]:loc[1]]); addr != "" && !isSystemAddress(addr) {
			return addr
		}
	}
	return ""
}

// Bounce texts put the address on the line of the reason or a few lines
// above it, rarely below.
const (
	linesBefore = 4
	linesAfter  = 1
)

// nearestAddress looks for an address around text[start:end]. The window runs
// from linesBefore lines above the match to linesAfter lines below it. The
// closest address wins; on a tie the one before the match wins.
func nearestAddress(text string, start, end int) string {
	from := strings.LastIndexByte(text[:start], '\n') + 1
	for n := 0; n < linesBefore && from > 0; n++ {
		from = strings.LastIndexByte(text[:from-1], '\n') + 1
	}
	to := lineEnd(text, end)
	for n := 0; n < linesAfter && to < len(text); n++ {
		to = lineEnd(text, to+1)
	}

	best, bestDist := "", -1
	window := text[from:to]
	for _, loc := range addrRe.FindAllStringIndex(window, -1) {
		addr := cleanAddress(window[loc[0]:loc[1]])
		if addr == "" || isSystemAddress(addr) {
			continue
		}
		a, b := from+loc[0], from+loc[1]
		var dist int
		switch {
		case b <= start:
			dist = start - b
		case a >= end:
			dist = a - end
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = addr, dist
		}
	}
	return best
}

// lineEnd returns the index of the newline ending the line at i, or len(text).
func lineEnd(text string, i int) int {
	if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(text)
}
