package enrich

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentItem is one item as presented to the provider.
type ContentItem struct {
	Title      string
	Content    string
	URL        string
	SourceName string
}

// EstimatedTokens approximates prompt cost at four characters per token.
func (c ContentItem) EstimatedTokens() int {
	return len(c.Title+" "+c.Content) / 4
}

// ContentHash keys cached enrichment results.
func ContentHash(title, url, sourceName string) string {
	sum := sha256.Sum256([]byte(title + "|" + url + "|" + sourceName))
	return hex.EncodeToString(sum[:])[:16]
}

// Batches splits items into runs of at most size items whose estimated
// tokens stay within maxTokens. A single item over budget still gets a
// batch of its own.
func Batches(items []ContentItem, size, maxTokens int) [][]ContentItem {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	var (
		out    [][]ContentItem
		cur    []ContentItem
		tokens int
	)
	for _, it := range items {
		t := it.EstimatedTokens()
		if len(cur) >= size || (len(cur) > 0 && maxTokens > 0 && tokens+t > maxTokens) {
			out = append(out, cur)
			cur, tokens = nil, 0
		}
		cur = append(cur, it)
		tokens += t
	}
	return append(out, cur)
}
