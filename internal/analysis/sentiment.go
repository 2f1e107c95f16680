package analysis

// sentimentLexicon maps tokens to valence scores in [-5, 5], AFINN-style.
// It covers vocabulary common in interview answers; unknown tokens are
// neutral. Scores are averaged over matched tokens and scaled to [-1, 1].
var sentimentLexicon = map[string]int{
	"excellent":    4,
	"outstanding":  4,
	"amazing":      4,
	"great":        3,
	"love":         3,
	"successful":   3,
	"success":      3,
	"strong":       2,
	"good":         2,
	"happy":        2,
	"confident":    2,
	"improved":     2,
	"effective":    2,
	"enjoy":        2,
	"enjoyed":      2,
	"passionate":   2,
	"motivated":    2,
	"proud":        2,
	"achieved":     2,
	"accomplished": 2,
	"helpful":      2,
	"positive":     2,
	"better":       2,
	"interesting":  2,
	"excited":      2,
	"able":         1,
	"fine":         1,
	"solved":       1,
	"learned":      1,
	"opportunity":  1,
	"growth":       1,

	"challenging": -1,
	"hard":        -1,
	"nervous":     -1,
	"unsure":      -1,
	"weak":        -2,
	"difficult":   -1,
	"problem":     -1,
	"problems":    -1,
	"issue":       -1,
	"issues":      -1,
	"struggle":    -2,
	"struggled":   -2,
	"bad":         -3,
	"poor":        -2,
	"failed":      -2,
	"failure":     -2,
	"stress":      -2,
	"stressed":    -2,
	"stressful":   -2,
	"worried":     -2,
	"afraid":      -2,
	"hate":        -3,
	"terrible":    -3,
	"awful":       -3,
	"worst":       -3,
	"angry":       -3,
	"frustrated":  -2,
	"frustrating": -2,
	"mistake":     -2,
	"mistakes":    -2,
	"wrong":       -2,
}

// sentimentOf returns the average valence of matched tokens scaled to
// [-1, 1], clamped. Token lists with no lexicon hits are neutral (0).
func sentimentOf(tokens []string) float64 {
	var sum, hits int
	for _, tok := range tokens {
		if score, ok := sentimentLexicon[tok]; ok {
			sum += score
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	polarity := float64(sum) / float64(hits) / 5.0
	if polarity > 1 {
		polarity = 1
	} else if polarity < -1 {
		polarity = -1
	}
	return polarity
}
