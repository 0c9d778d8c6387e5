package matcher

import (
	"sort"

	"statement-reconciler/internal/models"
)

// AmountIndex buckets B records by the amount text they are compared on.
// Each bucket holds record positions in ascending order.
type AmountIndex struct {
	// Texts holds the comparison text of every indexed record, by position
	Texts []string

	buckets map[string][]int
}

// NewAmountIndex builds the index over set using the given sign policy
func NewAmountIndex(set models.TransactionSet, sign SignPolicy) *AmountIndex {
	index := &AmountIndex{
		Texts:   make([]string, set.Len()),
		buckets: make(map[string][]int),
	}

	for i := 0; i < set.Len(); i++ {
		text := comparisonText(set.At(i), sign)
		index.Texts[i] = text
		index.buckets[text] = append(index.buckets[text], i)
	}
	return index
}

// Lookup returns the positions of records whose text equals text
func (ai *AmountIndex) Lookup(text string) []int {
	return ai.buckets[text]
}

// Len returns the number of indexed records
func (ai *AmountIndex) Len() int {
	return len(ai.Texts)
}

// GetIndexStats returns statistics about the index
func (ai *AmountIndex) GetIndexStats() IndexStats {
	stats := IndexStats{
		TotalRecords:   len(ai.Texts),
		UniqueAmounts:  len(ai.buckets),
		LargestBuckets: make([]BucketStat, 0, len(ai.buckets)),
	}
	for text, positions := range ai.buckets {
		if len(positions) > 1 {
			stats.DuplicateRecords += len(positions) - 1
			stats.LargestBuckets = append(stats.LargestBuckets, BucketStat{Text: text, Count: len(positions)})
		}
	}
	sort.Slice(stats.LargestBuckets, func(i, j int) bool {
		if stats.LargestBuckets[i].Count != stats.LargestBuckets[j].Count {
			return stats.LargestBuckets[i].Count > stats.LargestBuckets[j].Count
		}
		return stats.LargestBuckets[i].Text < stats.LargestBuckets[j].Text
	})
	if len(stats.LargestBuckets) > 5 {
		stats.LargestBuckets = stats.LargestBuckets[:5]
	}
	return stats
}

// IndexStats provides statistics about an amount index
type IndexStats struct {
	TotalRecords     int
	UniqueAmounts    int
	DuplicateRecords int
	LargestBuckets   []BucketStat
}

// BucketStat is one amount text shared by several records
type BucketStat struct {
	Text  string
	Count int
}

// comparisonText renders the amount of r the way the sign policy compares it
func comparisonText(r models.TransactionRecord, sign SignPolicy) string {
	if sign == SignAbsolute {
		return models.AmountText(r.Amount.Abs())
	}
	return r.AmountText()
}
