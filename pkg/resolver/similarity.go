package resolver

// Name-phrase matching accepts a side whose bigram Dice similarity clears
// this threshold. Tuned against noisy memecoin names; raising it loses
// legitimate partial matches like "dogwifhat" vs "dog wif hat".
const nameSimilarityThreshold = 0.28

// diceCoefficient computes the Sorensen-Dice similarity of two strings over
// their character bigrams, in [0, 1]. Inputs are expected pre-lowercased.
func diceCoefficient(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	counts := make(map[string]int, len(a)-1)
	for i := 0; i+2 <= len(a); i++ {
		counts[a[i:i+2]]++
	}
	overlap := 0
	for i := 0; i+2 <= len(b); i++ {
		bg := b[i : i+2]
		if counts[bg] > 0 {
			counts[bg]--
			overlap++
		}
	}
	return 2 * float64(overlap) / float64(len(a)+len(b)-2)
}
