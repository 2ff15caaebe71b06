// Package scope derives, from a metadata document, which verses already have
// recorded audio. The index is rebuilt wholesale whenever the ingredient set
// changes; it is never persisted.
package scope

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/JuniperScribe/core/burrito"
	"github.com/FocuswithJustin/JuniperScribe/core/versification"
)

// Index answers audio-coverage queries for the selection UI.
type Index struct {
	// byBook maps book code to the sorted, deduplicated chapter:verse refs
	// with recorded audio.
	byBook map[string][]string
}

// Build rebuilds the index from the metadata's audio ingredients. The rebuild
// is O(ingredients); per-project verse counts keep that cheap.
func Build(m *burrito.Metadata) *Index {
	idx := &Index{byBook: make(map[string][]string)}
	if m == nil {
		return idx
	}

	seen := make(map[string]map[string]bool)
	for _, ing := range m.Ingredients {
		if ing.Kind() != burrito.KindAudio {
			continue
		}
		for book, refs := range ing.Scope {
			if seen[book] == nil {
				seen[book] = make(map[string]bool)
			}
			for _, ref := range refs {
				if !seen[book][ref] {
					seen[book][ref] = true
					idx.byBook[book] = append(idx.byBook[book], ref)
				}
			}
		}
	}

	for book := range idx.byBook {
		sort.Slice(idx.byBook[book], func(i, j int) bool {
			return refLess(idx.byBook[book][i], idx.byBook[book][j])
		})
	}
	return idx
}

// refLess orders chapter:verse refs numerically.
func refLess(a, b string) bool {
	ca, va := splitRef(a)
	cb, vb := splitRef(b)
	if ca != cb {
		return ca < cb
	}
	return va < vb
}

func splitRef(ref string) (chapter, verse int) {
	parts := strings.SplitN(ref, ":", 2)
	chapter, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		verse, _ = strconv.Atoi(parts[1])
	}
	return chapter, verse
}

// Refs returns the recorded chapter:verse refs for a book in order.
func (idx *Index) Refs(book string) []string {
	return idx.byBook[book]
}

// Books returns the books having at least one recorded verse, sorted.
func (idx *Index) Books() []string {
	books := make([]string, 0, len(idx.byBook))
	for b := range idx.byBook {
		books = append(books, b)
	}
	sort.Strings(books)
	return books
}

// HasAudioForVerse reports whether the verse has recorded audio.
func (idx *Index) HasAudioForVerse(book string, chapter, verse int) bool {
	ref := burrito.VerseRef(chapter, verse)
	for _, r := range idx.byBook[book] {
		if r == ref {
			return true
		}
	}
	return false
}

// HasAudioForEntireChapter reports whether every verse of the chapter has
// recorded audio. The recorded count must equal the chapter's declared
// maximum verse count; more-than is impossible by construction of the
// deterministic ingredient key.
func (idx *Index) HasAudioForEntireChapter(book string, chapter int, table *versification.Table) bool {
	refs := idx.byBook[book]
	if len(refs) == 0 {
		return false
	}
	max := table.VerseCount(book, chapter)
	if max == 0 {
		return false
	}
	prefix := fmt.Sprintf("%d:", chapter)
	count := 0
	for _, r := range refs {
		if strings.HasPrefix(r, prefix) {
			count++
		}
	}
	return count == max
}
