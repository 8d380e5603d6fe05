package timeline

import (
	"regexp"
	"sort"
	"strings"

	"github.com/scrypster/chronolex/pkg/types"
)

var (
	reLargeAmount = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:millions?|M€|k€)`)
	reAmount      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:€|euros?|EUR)`)
	reArticleRef  = regexp.MustCompile(`(?i)article\s+\d+(?:-\d+)?`)
	reEntityHit   = regexp.MustCompile(`(?:société|SAS|SARL|SA|M\.|Mme|Me)\s+[A-Z]`)
)

// actorPatterns locate person, company and organization names. Matches are
// validated by length and ranked by frequency of appearance in the text.
var actorPatterns = []*regexp.Regexp{
	// civility + name
	regexp.MustCompile(`(?:M\.|Mme|Mlle|Dr|Me|Pr|Maître)\s+([A-Z][a-zéèêë]+(?:\s+[A-ZÉÈÊË][A-ZÉÈÊË\-]+)*)`),
	// first name + last name
	regexp.MustCompile(`([A-Z][a-zéèêë]+\s+[A-ZÉÈÊË][A-ZÉÈÊË\-]+)(?:\s|,|\.|;|$)`),
	// company forms
	regexp.MustCompile(`(?:société|entreprise|SARL|SAS|SA)\s+([A-Z][A-Za-zéèêë\-]+)`),
}

// scoreImportance rates a context window 1..10 from weighted legal
// keywords plus structural signals (amounts, article references, entity
// density, international reach, coercive measures).
func scoreImportance(text string) int {
	lower := strings.ToLower(text)
	importance := 5

	for keyword, weight := range importanceWeights {
		if strings.Contains(lower, keyword) {
			importance += weight
		}
	}
	if reLargeAmount.MatchString(lower) {
		importance += 2
	}
	if reArticleRef.MatchString(lower) {
		importance++
	}
	if len(reEntityHit.FindAllString(text, -1)) > 3 {
		importance++
	}
	if containsAny(lower, internationalMarkers) {
		importance++
	}
	if containsAny(lower, coerciveMarkers) {
		importance += 2
	}

	if importance < 1 {
		return 1
	}
	if importance > 10 {
		return 10
	}
	return importance
}

// classify picks the category whose keywords score highest in the context
// window. Ties resolve by fixed category order so classification stays
// deterministic across runs.
func classify(text string) types.Category {
	lower := strings.ToLower(text)

	best := types.CategoryOther
	bestScore := 0
	for _, cat := range types.AllCategories {
		keywords, ok := categoryKeywords[cat]
		if !ok {
			continue
		}
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	return best
}

// extractActors pulls up to 5 names from a context window, most frequent
// first. Candidates shorter than 4 or longer than 49 characters are
// rejected as regex noise.
func extractActors(text string) []string {
	found := make(map[string]struct{})
	for _, re := range actorPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			actor := strings.TrimSpace(m[1])
			if len(actor) > 3 && len(actor) < 50 {
				found[actor] = struct{}{}
			}
		}
	}
	if len(found) == 0 {
		return nil
	}

	type rankedActor struct {
		name  string
		count int
	}
	ranked := make([]rankedActor, 0, len(found))
	for actor := range found {
		ranked = append(ranked, rankedActor{actor, strings.Count(text, actor)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	actors := make([]string, len(ranked))
	for i, r := range ranked {
		actors[i] = r.name
	}
	return actors
}

// cleanDescription collapses whitespace, strips stray punctuation and caps
// the text near 300 characters, cutting at a sentence boundary when one
// fits under 280.
func cleanDescription(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.Trim(text, ".,;: \n\r\t")

	if len(text) <= 300 {
		return text
	}
	sentences := strings.Split(text, ".")
	var b strings.Builder
	for _, s := range sentences {
		if b.Len()+len(s) >= 280 {
			break
		}
		b.WriteString(s)
		b.WriteString(".")
	}
	if b.Len() > 0 {
		return strings.TrimSpace(b.String()) + ".."
	}
	return truncateRunes(text, 297) + "..."
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimPlural(s string) string {
	return strings.TrimRight(s, "s")
}
