package attribution

import (
	"math"
	"strings"
	"unicode"

	"myGreenInsight/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultFuzzyThreshold = 0.6
	// fuzzy matches never claim full confidence
	maxFuzzyConfidence = 0.95
	// containment only counts once the shorter name has some substance
	minContainmentLen = 3
)

// Resolver maps utm parameters onto a known campaign. It holds no state
// besides the similarity threshold and is safe for concurrent use.
type Resolver struct {
	threshold float64
}

func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &Resolver{threshold: threshold}
}

// Resolve picks the campaign referenced by utm_campaign. An exact id or name
// match wins outright; otherwise the most similar normalized name above the
// threshold is returned with a confidence below 1.
func (r *Resolver) Resolve(source, medium, campaign string, candidates []domain.Campaign) domain.CampaignResolution {
	res := domain.CampaignResolution{
		Method:   domain.ResolutionUnresolved,
		Platform: domain.PlatformFromSource(source),
	}

	campaign = strings.TrimSpace(campaign)
	if campaign == "" || len(candidates) == 0 {
		return res
	}

	for _, c := range candidates {
		if equalFold(campaign, c.PlatformCampaignID) || equalFold(campaign, c.Name) {
			id := c.ID
			res.CampaignID = &id
			res.Confidence = 1.0
			res.Method = domain.ResolutionExactUTMMatch
			res.MatchedName = c.Name
			return res
		}
	}

	query := normalizeName(campaign)
	if query == "" {
		return res
	}

	bestIdx, bestScore := -1, 0.0
	for i, c := range candidates {
		score := math.Max(similarity(query, normalizeName(c.Name)),
			similarity(query, normalizeName(c.PlatformCampaignID)))
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore <= r.threshold {
		return res
	}

	best := candidates[bestIdx]
	id := best.ID
	res.CampaignID = &id
	res.Confidence = math.Round(math.Min(bestScore, maxFuzzyConfidence)*100) / 100
	res.Method = domain.ResolutionFuzzyNameMatch
	res.MatchedName = best.Name
	return res
}

func equalFold(a, b string) bool {
	b = strings.TrimSpace(b)
	return b != "" && strings.EqualFold(a, b)
}

// normalizeName folds case, strips diacritics and collapses every run of
// punctuation or whitespace into a single space.
func normalizeName(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// similarity scores two normalized names in [0,1]. Containment of one name
// in the other scores at least 0.7, scaled by how much of the longer name
// it covers; otherwise the normalized edit distance is used.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	longer := math.Max(float64(len(ra)), float64(len(rb)))
	shorter := math.Min(float64(len(ra)), float64(len(rb)))

	edit := 1 - float64(levenshtein(ra, rb))/longer
	if shorter >= minContainmentLen && (strings.Contains(a, b) || strings.Contains(b, a)) {
		contain := 0.7 + 0.25*(shorter/longer)
		return math.Max(edit, contain)
	}
	return edit
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
