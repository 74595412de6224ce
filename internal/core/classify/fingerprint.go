package classify

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// stopwords removed before hashing so trivial filler does not change the print
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"this": {}, "that": {}, "it": {}, "its": {}, "i": {}, "you": {}, "your": {},
	"my": {}, "so": {}, "very": {}, "really": {}, "just": {}, "to": {},
	"of": {}, "and": {}, "or": {}, "for": {},
}

// pool of fresh transformer chains; transform.Chain values are stateful
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

// Fingerprint returns a stable hash of the normalized text.
// Near-duplicates that differ only in case, punctuation, whitespace, or
// stopwords produce the same fingerprint.
func Fingerprint(text string) string {
	return hashNorm(normalizeForPrint(text))
}

func normalizeForPrint(s string) string {
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	// keep letters and digits only, everything else becomes a space
	var b strings.Builder
	b.Grow(len(ns))
	for _, r := range ns {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func hashNorm(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
