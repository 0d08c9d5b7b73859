package triage

import (
	"regexp"
	"strings"
)

// A place name usually follows a preposition. The first pass wants proper
// nouns ("near Pune Railway Station"), the second accepts lower-case text
// for senders who do not capitalise.
var (
	properPlace = regexp.MustCompile(`\b(?i:at|near|in|around|opposite|behind|beside|outside|from|on)\s+([A-Z][\w'&.-]*(?:\s+[A-Z0-9][\w'&.-]*)*)`)
	loosePlace  = regexp.MustCompile(`(?i)\b(?:at|near|in|around|opposite|behind|beside|outside)\s+([a-z0-9][a-z0-9'&.-]*(?:\s+[a-z0-9][a-z0-9'&.-]*){0,3})`)
)

var articles = map[string]bool{"a": true, "an": true, "the": true}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "asap": true, "because": true, "but": true,
	"for": true, "help": true, "i": true, "immediately": true, "is": true, "me": true,
	"my": true, "need": true, "needs": true, "now": true, "of": true, "our": true,
	"please": true, "pls": true, "quickly": true, "require": true, "soon": true,
	"the": true, "there": true, "to": true, "today": true, "urgent": true,
	"urgently": true, "us": true, "we": true, "with": true, "sos": true,
}

// ExtractLocationHint returns a best-effort place name from free text or ""
func ExtractLocationHint(text string) string {
	for _, m := range properPlace.FindAllStringSubmatch(text, -1) {
		if place := trimPlace(m[1], false); place != "" {
			return place
		}
	}
	for _, m := range loosePlace.FindAllStringSubmatch(text, -1) {
		if place := trimPlace(m[1], true); place != "" {
			return place
		}
	}
	return ""
}

// trimPlace drops stop words. Leading articles are always skipped. In loose
// mode the place ends at the first stop word; in proper mode leading and
// trailing stop words ("Koregaon Park ASAP") are removed.
func trimPlace(candidate string, loose bool) string {
	words := strings.Fields(candidate)
	for len(words) > 0 && articles[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if loose {
		for i, w := range words {
			if isStop(w) {
				words = words[:i]
				break
			}
		}
	} else {
		for len(words) > 0 && isStop(words[0]) {
			words = words[1:]
		}
		for len(words) > 0 && isStop(words[len(words)-1]) {
			words = words[:len(words)-1]
		}
	}
	place := strings.TrimRight(strings.Join(words, " "), ".'&-")
	return strings.TrimSpace(place)
}

func isStop(w string) bool {
	return stopWords[strings.ToLower(strings.Trim(w, ".,!?'"))]
}
