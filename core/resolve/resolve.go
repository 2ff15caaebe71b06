// Package resolve turns a reference root plus a book/chapter/verse
// selection into renderable verse text or a recorded audio path.
//
// The text path never returns an error to the caller. Every failure
// degrades to a sentinel string the caller can display as-is.
package resolve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/JuniperScribe/core/burrito"
	"github.com/FocuswithJustin/JuniperScribe/core/cache"
	"github.com/FocuswithJustin/JuniperScribe/core/usfm"
	"github.com/FocuswithJustin/JuniperScribe/internal/logging"
)

// Sentinel strings returned in place of verse text.
const (
	TextNotAvailable   = "Content Not Available"
	TextChapterMissing = "Chapter not found"
	TextVerseMissing   = "Verse not found"
	TextLoadError      = "Error loading verse."
)

// ManifestFileName is the legacy descriptor probed when no burrito
// metadata is present.
const ManifestFileName = "manifest.yaml"

// locator is the result of a successful layout probe: the absolute
// path of the source markup for one book.
type locator struct {
	markupPath string
}

// layoutProbe inspects a reference root for one layout convention.
// It returns ok=false when the convention does not apply to the root,
// leaving the next probe to try.
type layoutProbe interface {
	Name() string
	Probe(root, book string) (locator, bool)
}

// rootMetadataProbe finds markup through metadata.json at the root.
type rootMetadataProbe struct{}

func (rootMetadataProbe) Name() string { return "root-metadata" }

func (rootMetadataProbe) Probe(root, book string) (locator, bool) {
	return probeMetadataDir(root, book)
}

// textLayerProbe finds markup through text-1/metadata.json.
type textLayerProbe struct{}

func (textLayerProbe) Name() string { return "text-layer" }

func (textLayerProbe) Probe(root, book string) (locator, bool) {
	return probeMetadataDir(filepath.Join(root, burrito.TextLayerDir), book)
}

func probeMetadataDir(dir, book string) (locator, bool) {
	m, err := burrito.ReadFile(filepath.Join(dir, burrito.MetadataFileName))
	if err != nil {
		return locator{}, false
	}
	relPath, _, ok := m.FindTextIngredient(book)
	if !ok {
		return locator{}, false
	}
	return locator{markupPath: filepath.Join(dir, filepath.FromSlash(relPath))}, true
}

// manifestProbe finds markup through a legacy manifest.yaml whose
// projects list carries per-book identifiers.
type manifestProbe struct{}

func (manifestProbe) Name() string { return "manifest" }

type manifestDoc struct {
	Projects []manifestProject `yaml:"projects"`
}

type manifestProject struct {
	Identifier string `yaml:"identifier"`
	Path       string `yaml:"path"`
}

func (manifestProbe) Probe(root, book string) (locator, bool) {
	data, err := os.ReadFile(filepath.Join(root, ManifestFileName))
	if err != nil {
		return locator{}, false
	}
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		logging.Warn("manifest parse failed", "path", filepath.Join(root, ManifestFileName), "error", err)
		return locator{}, false
	}
	for _, p := range doc.Projects {
		if strings.EqualFold(p.Identifier, book) {
			rel := strings.TrimPrefix(p.Path, "./")
			return locator{markupPath: filepath.Join(root, filepath.FromSlash(rel))}, true
		}
	}
	return locator{}, false
}

// Resolver resolves verse text and audio against a reference or
// project root. Parsed documents are held in an LRU keyed by their
// cache-file path and invalidated by content hash.
type Resolver struct {
	probes []layoutProbe
	docs   *cache.DocumentCache
}

// New creates a resolver with the standard probe order: root
// metadata, then the text-1 layer, then manifest.yaml.
func New() *Resolver {
	return &Resolver{
		probes: []layoutProbe{rootMetadataProbe{}, textLayerProbe{}, manifestProbe{}},
		docs:   cache.NewDefaultDocumentCache(),
	}
}

// ResolveVerseText returns the text of one verse from the reference
// rooted at root. It always returns a renderable string.
func (r *Resolver) ResolveVerseText(root, book string, chapter, verse int) string {
	loc, ok := r.locate(root, book)
	if !ok {
		return TextNotAvailable
	}

	doc, status := r.loadDocument(loc.markupPath)
	if status != "" {
		return status
	}
	return lookupVerse(doc, chapter, verse)
}

// ResolveVerseAudio reports whether a recording exists for the verse
// and returns its absolute path when it does.
func (r *Resolver) ResolveVerseAudio(root, book string, chapter, verse int) (string, bool) {
	m, err := burrito.Read(root)
	if err != nil {
		return "", false
	}
	key, _, ok := m.FindAudioIngredient(book, chapter, verse)
	if !ok {
		return "", false
	}
	_, contentRoot, err := burrito.Locate(root)
	if err != nil {
		return "", false
	}
	return filepath.Join(contentRoot, filepath.FromSlash(key)), true
}

// Invalidate drops any cached document for the given markup path.
func (r *Resolver) Invalidate(markupPath string) {
	r.docs.Remove(usfm.CachePathFor(markupPath))
}

// CacheStats exposes document cache statistics.
func (r *Resolver) CacheStats() cache.Stats {
	return r.docs.Stats()
}

func (r *Resolver) locate(root, book string) (locator, bool) {
	for _, p := range r.probes {
		if loc, ok := p.Probe(root, book); ok {
			logging.Debug("layout probe matched", "probe", p.Name(), "book", book, "markup", loc.markupPath)
			return loc, true
		}
	}
	return locator{}, false
}

// loadDocument returns the parsed document for markupPath, going
// memory cache, then disk JSON, then a one-time conversion of the
// source markup. A non-empty status string is a sentinel to return
// directly.
func (r *Resolver) loadDocument(markupPath string) (*usfm.Document, string) {
	jsonPath := usfm.CachePathFor(markupPath)

	if data, err := os.ReadFile(jsonPath); err == nil {
		hash := cache.HashBytes(data)
		if doc, ok := r.docs.Get(jsonPath, hash); ok {
			return doc, ""
		}
		doc := &usfm.Document{}
		if err := json.Unmarshal(data, doc); err == nil {
			r.docs.Put(jsonPath, hash, doc)
			return doc, ""
		}
		logging.Warn("cached document unreadable, reconverting", "path", jsonPath, "error", err)
	}

	if _, err := os.Stat(markupPath); err != nil {
		return nil, TextNotAvailable
	}
	doc, err := convertMarkup(markupPath, jsonPath)
	if err != nil {
		logging.Error("markup conversion failed", "path", markupPath, "error", err)
		return nil, TextLoadError
	}

	if data, err := os.ReadFile(jsonPath); err == nil {
		r.docs.Put(jsonPath, cache.HashBytes(data), doc)
	}
	return doc, ""
}

// convertMarkup parses the source markup, writes the JSON rendition
// next to it, and removes the source. The markup is consumed: after a
// successful conversion only the JSON remains.
func convertMarkup(markupPath, jsonPath string) (*usfm.Document, error) {
	raw, err := os.ReadFile(markupPath)
	if err != nil {
		return nil, err
	}
	doc, err := usfm.Parse(string(raw))
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return nil, err
	}
	if err := os.Remove(markupPath); err != nil {
		logging.Warn("source markup not removed after conversion", "path", markupPath, "error", err)
	}
	return doc, nil
}

func lookupVerse(doc *usfm.Document, chapter, verse int) string {
	ch := doc.FindChapter(strconv.Itoa(chapter))
	if ch == nil {
		return TextChapterMissing
	}
	v := ch.FindVerse(strconv.Itoa(verse))
	if v == nil {
		return TextVerseMissing
	}
	return v.VerseText
}

// Describe returns a short human label for a selection, used by the
// CLI when printing resolved verses.
func Describe(book string, chapter, verse int) string {
	name := usfm.BookName(book)
	if name == "" {
		name = book
	}
	return fmt.Sprintf("%s %d:%d", name, chapter, verse)
}
