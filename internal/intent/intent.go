// Package intent turns a free-form utterance into a weather intent.
//
// Matching is purely lexical: a greeting pattern, the literal phrase
// "weather in", and finally a bare-city guess after noise words are
// stripped. No network or I/O happens here.
package intent

import (
	"regexp"
	"strings"
)

// Kind classifies an utterance.
type Kind string

const (
	KindGreeting        Kind = "greeting"
	KindCityRequest     Kind = "city_request"
	KindCityNotDetected Kind = "city_not_detected" // "weather in" present but no city followed
	KindUnrecognized    Kind = "unrecognized"
)

// Intent is the result of Extract. City is set only for KindCityRequest.
type Intent struct {
	Kind Kind
	City string
}

const cityPhrase = "weather in"

var (
	greetingPattern = regexp.MustCompile(`^(hi+|hello+|hey+|howdy+|heya+|hola+)[\s!,.]*$`)
	cityAfterPhrase = regexp.MustCompile(`weather in\s+([a-z\s]+)`)

	// Fillers that trail an explicit "weather in <city>" request.
	explicitNoise = wordRemover("today", "now", "please", "tomorrow", "like", "looking")
	// Broader list for messages that are only a city plus chatter.
	bareNoise = wordRemover("today", "now", "please", "weather", "in", "for", "is", "tell", "me", "the", "like", "looking")

	spaceRun = regexp.MustCompile(`\s+`)
)

// wordRemover compiles a case-insensitive whole-word alternation. Word
// characters are Unicode letters, digits and '_', so "çin" keeps its "in".
// RE2 has no lookaround, so the boundary characters are captured and put back.
func wordRemover(words ...string) *regexp.Regexp {
	const edge = `[^\p{L}\p{N}_]`
	return regexp.MustCompile(`(?i)(^|` + edge + `)(?:` + strings.Join(words, "|") + `)($|` + edge + `)`)
}

// Extract classifies raw and extracts the candidate city, lower-cased.
func Extract(raw string) Intent {
	text := strings.ToLower(strings.TrimSpace(raw))

	if greetingPattern.MatchString(text) {
		return Intent{Kind: KindGreeting}
	}

	if strings.Contains(text, cityPhrase) {
		m := cityAfterPhrase.FindStringSubmatch(text)
		if m == nil {
			return Intent{Kind: KindCityNotDetected}
		}
		city := stripWords(explicitNoise, m[1])
		if city == "" {
			return Intent{Kind: KindCityNotDetected}
		}
		return Intent{Kind: KindCityRequest, City: city}
	}

	if city := stripWords(bareNoise, text); city != "" {
		return Intent{Kind: KindCityRequest, City: city}
	}
	return Intent{Kind: KindUnrecognized}
}

func stripWords(re *regexp.Regexp, s string) string {
	s = strings.TrimSpace(s)
	// Adjacent noise words share one separator, which a single pass consumes.
	for {
		next := re.ReplaceAllString(s, "${1}${2}")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
