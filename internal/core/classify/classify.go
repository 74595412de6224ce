// Package classify turns raw interaction text into a coarse category and a
// 0-100 priority score, and produces a canonical fingerprint for dedupe
package classify

import (
	"strings"
	"unicode"
)

// Category is the coarse bucket an interaction falls into
type Category string

const (
	// CategorySpam covers promotional or junk interactions
	CategorySpam Category = "spam"
	// CategorySimplePositive covers short praise and emoji-only reactions
	CategorySimplePositive Category = "simple_positive"
	// CategoryQuestion covers interactions asking something
	CategoryQuestion Category = "question"
	// CategoryFeedback covers suggestions; also the default bucket
	CategoryFeedback Category = "feedback"
	// CategoryNegative covers complaints and negative sentiment
	CategoryNegative Category = "negative"
)

// base priority per category; the length bonus is added on top
var baseScore = map[Category]int{
	CategorySpam:           10,
	CategorySimplePositive: 25,
	CategoryFeedback:       55,
	CategoryQuestion:       65,
	CategoryNegative:       75,
}

var promoKeywords = []string{
	"buy now", "free followers", "discount", "promo code", "check out my",
	"follow me", "subscribe to", "giveaway", "dm me", "click the link",
	"make money", "earn cash",
}

var positivePhrases = []string{
	"love", "great", "awesome", "amazing", "nice", "thank you", "thanks",
	"cool", "perfect", "beautiful", "the best", "well done",
}

var interrogatives = []string{
	"what", "how", "why", "when", "where", "who", "which",
	"can", "could", "do", "does", "did", "is", "are", "will", "would", "should",
}

var negativeLexicon = []string{
	"hate", "terrible", "awful", "worst", "trash", "garbage", "scam",
	"disappointed", "disappointing", "horrible", "sucks", "waste of",
	"refund", "unsubscribed",
}

var suggestionCues = []string{
	"you should", "it would be", "please add", "suggestion", "consider",
	"i wish", "feature request", "would be better", "my idea",
}

// Classify maps text to a category and priority score.
// Precedence when several signals match: spam > simple-positive > question >
// negative > feedback. Empty text is feedback with priority 0.
func Classify(text string) (Category, int) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return CategoryFeedback, 0
	}
	lower := strings.ToLower(trimmed)
	cat := categorize(trimmed, lower)
	return cat, score(cat, trimmed)
}

func categorize(text, lower string) Category {
	if isSpam(text, lower) {
		return CategorySpam
	}
	if isSimplePositive(text, lower) {
		return CategorySimplePositive
	}
	if isQuestion(lower) {
		return CategoryQuestion
	}
	if containsAny(lower, negativeLexicon) {
		return CategoryNegative
	}
	return CategoryFeedback
}

// score adds a length bonus (1 point per 10 runes, capped at 30) to the
// category base, clamped to [0,100]
func score(cat Category, text string) int {
	s := baseScore[cat]
	bonus := len([]rune(text)) / 10
	if bonus > 30 {
		bonus = 30
	}
	s += bonus
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}

func isSpam(text, lower string) bool {
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") ||
		strings.Contains(lower, "www.") {
		return true
	}
	if containsAny(lower, promoKeywords) {
		return true
	}
	if maxRunLength(lower) >= 4 && len(lower) > 4 {
		return true
	}
	if emojiCount(text) >= 5 {
		return true
	}
	return isShouting(text)
}

// isShouting reports a fully-uppercase message with at least 6 letters
func isShouting(text string) bool {
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return letters >= 6
}

func isSimplePositive(text, lower string) bool {
	ec := emojiCount(text)
	if ec >= 1 && ec <= 2 && letterCount(text) <= 4 {
		return true
	}
	if len([]rune(text)) <= 40 && containsAny(lower, positivePhrases) {
		return true
	}
	return false
}

func isQuestion(lower string) bool {
	if strings.Contains(lower, "?") {
		return true
	}
	first, _, _ := strings.Cut(lower, " ")
	first = strings.TrimFunc(first, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range interrogatives {
		if first == w {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// maxRunLength returns the longest run of one repeated letter or punctuation
// mark; whitespace runs do not count
func maxRunLength(s string) int {
	var prev rune
	run, maxRun := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			prev, run = 0, 0
			continue
		}
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > maxRun {
			maxRun = run
		}
	}
	return maxRun
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// emojiCount counts runes in the common emoji blocks, including the
// supplemental symbols plane and legacy dingbats
func emojiCount(s string) int {
	n := 0
	for _, r := range s {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols & pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x1FA70 && r <= 0x1FAFF: // extended-A
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0x2764 || r == 0xFE0F: // heart, variation selector
		return true
	}
	return false
}
