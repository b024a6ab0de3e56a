package extract

import "strings"

type lexiconEntry struct {
	polarity     float64
	subjectivity float64
}

// lexicon scores the vocabulary that shows up in market and product chatter.
// Values follow the pattern-lexicon convention: polarity in [-1,1],
// subjectivity in [0,1].
var lexicon = map[string]lexiconEntry{
	"amazing":       {0.6, 0.9},
	"awesome":       {0.8, 0.9},
	"bad":           {-0.7, 0.67},
	"bearish":       {-0.6, 0.8},
	"best":          {1.0, 0.3},
	"better":        {0.5, 0.5},
	"breakout":      {0.4, 0.6},
	"broken":        {-0.4, 0.5},
	"bullish":       {0.6, 0.8},
	"buy":           {0.2, 0.4},
	"collapse":      {-0.7, 0.7},
	"crash":         {-0.8, 0.8},
	"crushed":       {-0.5, 0.7},
	"disappointing": {-0.6, 0.7},
	"down":          {-0.2, 0.3},
	"drop":          {-0.3, 0.4},
	"dump":          {-0.5, 0.7},
	"excellent":     {1.0, 1.0},
	"exciting":      {0.5, 0.8},
	"fail":          {-0.6, 0.6},
	"failure":       {-0.6, 0.6},
	"fantastic":     {0.9, 0.9},
	"fear":          {-0.5, 0.7},
	"gain":          {0.4, 0.4},
	"gains":         {0.4, 0.4},
	"good":          {0.7, 0.6},
	"great":         {0.8, 0.75},
	"growth":        {0.4, 0.4},
	"happy":         {0.8, 1.0},
	"hate":          {-0.8, 0.9},
	"high":          {0.2, 0.3},
	"horrible":      {-1.0, 1.0},
	"huge":          {0.3, 0.6},
	"incredible":    {0.9, 0.9},
	"loss":          {-0.4, 0.4},
	"losses":        {-0.4, 0.4},
	"love":          {0.5, 0.6},
	"low":           {-0.2, 0.3},
	"lower":         {-0.3, 0.4},
	"miss":          {-0.3, 0.4},
	"missed":        {-0.3, 0.4},
	"moon":          {0.6, 0.9},
	"negative":      {-0.6, 0.5},
	"nice":          {0.6, 1.0},
	"opportunity":   {0.4, 0.5},
	"optimistic":    {0.5, 0.7},
	"panic":         {-0.7, 0.8},
	"perfect":       {1.0, 1.0},
	"pessimistic":   {-0.5, 0.7},
	"poor":          {-0.4, 0.6},
	"positive":      {0.6, 0.5},
	"profit":        {0.5, 0.4},
	"profits":       {0.5, 0.4},
	"pump":          {0.3, 0.7},
	"rally":         {0.5, 0.6},
	"record":        {0.3, 0.4},
	"rip":           {-0.4, 0.7},
	"risk":          {-0.3, 0.5},
	"risky":         {-0.4, 0.6},
	"sad":           {-0.5, 1.0},
	"scam":          {-0.9, 0.9},
	"sell":          {-0.2, 0.4},
	"short":         {-0.2, 0.4},
	"soar":          {0.6, 0.6},
	"solid":         {0.5, 0.5},
	"strong":        {0.4, 0.5},
	"success":       {0.6, 0.6},
	"surge":         {0.5, 0.5},
	"terrible":      {-1.0, 1.0},
	"top":           {0.5, 0.5},
	"ugly":          {-0.7, 0.9},
	"up":            {0.2, 0.3},
	"upside":        {0.4, 0.5},
	"weak":          {-0.4, 0.5},
	"win":           {0.6, 0.6},
	"winner":        {0.7, 0.7},
	"wonderful":     {0.9, 0.9},
	"worst":         {-1.0, 1.0},
	"wrong":         {-0.5, 0.6},
}

var negators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"none":    true,
	"neither": true,
	"nor":     true,
	"cannot":  true,
	"can't":   true,
	"don't":   true,
	"won't":   true,
	"isn't":   true,
	"aren't":  true,
	"wasn't":  true,
	"didn't":  true,
}

var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"extremely":  1.5,
	"incredibly": 1.5,
	"so":         1.2,
	"super":      1.3,
	"slightly":   0.5,
	"somewhat":   0.7,
	"barely":     0.5,
}

// scoreLexicon computes average polarity and subjectivity over the words
// with lexicon entries. A negator before a scored word flips its polarity;
// an intensifier scales it. Returns (0, 0) when nothing matches.
func scoreLexicon(text string) (polarity, subjectivity float64) {
	tokens := strings.Fields(strings.ToLower(text))

	var polSum, subjSum float64
	var matched int

	for i, token := range tokens {
		word := strings.Trim(token, ".,!?:;\"'()[]#@")
		entry, ok := lexicon[word]
		if !ok {
			continue
		}

		pol := entry.polarity
		if i > 0 {
			prev := strings.Trim(tokens[i-1], ".,!?:;\"'()[]")
			if negators[prev] {
				pol = -0.5 * pol
			} else if factor, ok := intensifiers[prev]; ok {
				pol *= factor
				if pol > 1 {
					pol = 1
				} else if pol < -1 {
					pol = -1
				}
			}
		}

		polSum += pol
		subjSum += entry.subjectivity
		matched++
	}

	if matched == 0 {
		return 0, 0
	}
	return polSum / float64(matched), subjSum / float64(matched)
}
