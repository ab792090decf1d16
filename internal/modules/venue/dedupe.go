package venue

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"vibe/internal/types"
)

// DedupeToleranceMeters is the maximum distance between two records of the same place.
const DedupeToleranceMeters = 75.0

// NormalizeName lower-cases, strips diacritics and folds punctuation to single spaces.
func NormalizeName(s string) string {
	// transform.Chain is stateful; build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}

	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.ToLower(out) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// SamePlace reports whether a and b describe the same physical venue.
func SamePlace(a, b Candidate) bool {
	if a.knownAs(b.ID) || b.knownAs(a.ID) {
		return true
	}
	na := NormalizeName(a.Name)
	if na == "" || na != NormalizeName(b.Name) {
		return false
	}
	return types.HaversineKm(a.Location, b.Location)*1000 <= DedupeToleranceMeters
}

func (c Candidate) knownAs(id string) bool {
	if id == "" {
		return false
	}
	if c.ID == id {
		return true
	}
	for _, alias := range c.Aliases {
		if alias == id {
			return true
		}
	}
	return false
}

// Dedupe merges records of the same place, keeping first-seen order.
func Dedupe(in []Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		merged := false
		for i := range out {
			if SamePlace(out[i], c) {
				out[i] = Merge(out[i], c)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, c)
		}
	}
	return out
}

// Merge combines two records of one place. The richer record wins identity
// and the other contributes missing fields, tags and provenance.
func Merge(a, b Candidate) Candidate {
	keep, other := a, b
	if richer(b, a) {
		keep, other = b, a
	}

	if keep.Rating == nil {
		keep.Rating = other.Rating
	}
	if keep.ReviewCount == nil {
		keep.ReviewCount = other.ReviewCount
	}
	if keep.Description == "" {
		keep.Description = other.Description
	}
	if keep.Category == "" {
		keep.Category = other.Category
	}
	if keep.WeatherScore == nil {
		keep.WeatherScore = other.WeatherScore
	}

	keep.Tags = unionStrings(keep.Tags, other.Tags)
	keep.Provenance = append(append([]Provenance(nil), keep.Provenance...), other.Provenance...)
	aliases := append([]string(nil), keep.Aliases...)
	if other.ID != keep.ID {
		aliases = append(aliases, other.ID)
	}
	keep.Aliases = unionStrings(aliases, other.Aliases)
	return keep
}

// richer prefers a rated record, then the one with more reviews.
func richer(a, b Candidate) bool {
	if (a.Rating != nil) != (b.Rating != nil) {
		return a.Rating != nil
	}
	return reviewCount(a) > reviewCount(b)
}

func reviewCount(c Candidate) int {
	if c.ReviewCount == nil {
		return 0
	}
	return *c.ReviewCount
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
