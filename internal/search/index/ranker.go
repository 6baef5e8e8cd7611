package index

import "math"

const (
	k1 = 1.2
	b  = 0.75
)

// computeIDF uses the BM25+ style smoothing that stays positive even when a
// term occurs in every document, so a single-document index still matches.
func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs-docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
