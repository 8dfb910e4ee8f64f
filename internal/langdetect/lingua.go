// Package langdetect tags listings with the language of their title and
// description text.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// listingLanguages covers the storefront languages the supported sites serve.
// Restricting the detector keeps it accurate on short product titles.
var listingLanguages = []lingua.Language{
	lingua.English,
	lingua.Hindi,
	lingua.Tamil,
	lingua.Bengali,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Japanese,
	lingua.Chinese,
}

// minLetters below which detection is skipped; shorter samples are mostly
// model numbers and brand names that defeat the detector.
const minLetters = 6

var (
	buildOnce sync.Once
	detector  lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter language code for the listing text,
// or "" when the sample is too short or ambiguous.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if countLetters(sample) < minLetters {
		return ""
	}

	language, ok := listingDetector().DetectLanguageOf(sample)
	if !ok {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func countLetters(sample string) int {
	count := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}

func listingDetector() lingua.LanguageDetector {
	buildOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(listingLanguages...).
			Build()
	})
	return detector
}
