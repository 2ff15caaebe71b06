// Package burrito owns the Scripture Burrito metadata document that is the
// single source of truth for what content a project or reference holds. The
// document is always rewritten wholesale; there is no partial update path.
package burrito

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

// FormatSentinel is the required value of the top-level "format" field.
const FormatSentinel = "scripture burrito"

// MetadataFileName is the on-disk name of the metadata document.
const MetadataFileName = "metadata.json"

// TextLayerDir is the legacy subdirectory holding the primary text layer.
// Older project layouts nest metadata.json and ingredients/ beneath it.
const TextLayerDir = "text-1"

// MIME types tracked in ingredient records.
const (
	MIMEAudioWAV = "audio/wav"
	MIMETextUSFM = "text/x-usfm"
)

// Metadata is the parsed metadata document.
type Metadata struct {
	Format         string                 `json:"format"`
	Identification Identification         `json:"identification"`
	Languages      []Language             `json:"languages,omitempty"`
	Type           TypeInfo               `json:"type"`
	Ingredients    map[string]*Ingredient `json:"ingredients"`
}

// Identification carries the localized display name map.
type Identification struct {
	Name map[string]string `json:"name"`
}

// Language describes one language entry; the first is the primary display
// language.
type Language struct {
	Tag  string            `json:"tag,omitempty"`
	Name map[string]string `json:"name,omitempty"`
}

// TypeInfo wraps the flavor descriptor.
type TypeInfo struct {
	FlavorType FlavorType `json:"flavorType"`
}

// FlavorType holds the current scope: the set of its keys is the set of books
// this project covers. Values are opaque.
type FlavorType struct {
	Name         string                     `json:"name,omitempty"`
	CurrentScope map[string]json.RawMessage `json:"currentScope"`
}

// Checksum holds the content hash of an audio ingredient.
type Checksum struct {
	MD5 string `json:"md5"`
}

// Ingredient is one tracked file entry.
type Ingredient struct {
	Checksum *Checksum           `json:"checksum,omitempty"`
	MIMEType string              `json:"mimeType"`
	Size     int64               `json:"size"`
	Scope    map[string][]string `json:"scope,omitempty"`
}

// IngredientKind tags the mime family of an ingredient. Scope and resolver
// logic match exhaustively on the kind rather than sniffing fields.
type IngredientKind int

const (
	// KindOther is any ingredient outside the text/audio families.
	KindOther IngredientKind = iota
	// KindText is a USFM text ingredient.
	KindText
	// KindAudio is a recorded audio ingredient.
	KindAudio
)

// Kind returns the mime family of the ingredient.
func (i *Ingredient) Kind() IngredientKind {
	switch i.MIMEType {
	case MIMETextUSFM:
		return KindText
	case MIMEAudioWAV:
		return KindAudio
	default:
		return KindOther
	}
}

// CoversBook reports whether the ingredient's scope includes the book.
func (i *Ingredient) CoversBook(book string) bool {
	_, ok := i.Scope[book]
	return ok
}

// CoversVerse reports whether the ingredient's scope includes chapter:verse
// of the book.
func (i *Ingredient) CoversVerse(book string, chapter, verse int) bool {
	ref := VerseRef(chapter, verse)
	for _, r := range i.Scope[book] {
		if r == ref {
			return true
		}
	}
	return false
}

// Books returns the book codes named by currentScope.
func (m *Metadata) Books() []string {
	books := make([]string, 0, len(m.Type.FlavorType.CurrentScope))
	for b := range m.Type.FlavorType.CurrentScope {
		books = append(books, b)
	}
	return books
}

// DisplayName returns the English display name, falling back to any entry.
func (m *Metadata) DisplayName() string {
	if name, ok := m.Identification.Name["en"]; ok && name != "" {
		return name
	}
	for _, name := range m.Identification.Name {
		if name != "" {
			return name
		}
	}
	return ""
}

// Validate checks the required document shape: format sentinel and a
// non-empty identification name.
func (m *Metadata) Validate() error {
	if m.Format != FormatSentinel {
		return errors.NewValidation("format", "expected scripture burrito format")
	}
	if m.DisplayName() == "" {
		return errors.NewValidation("identification.name", "missing display name")
	}
	return nil
}

// Parse decodes a metadata document from JSON.
func Parse(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "metadata", Message: err.Error(), Err: err}
	}
	if m.Ingredients == nil {
		m.Ingredients = make(map[string]*Ingredient)
	}
	return &m, nil
}

// ToJSON serializes the document, pretty-printed the way the mobile app
// wrote it.
func (m *Metadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Locate finds the metadata document beneath root, trying root/metadata.json
// first and then the legacy root/text-1/metadata.json. The second return is
// the content root against which ingredient keys resolve.
func Locate(root string) (metaPath, contentRoot string, err error) {
	direct := filepath.Join(root, MetadataFileName)
	if _, statErr := os.Stat(direct); statErr == nil {
		return direct, root, nil
	}
	legacy := filepath.Join(root, TextLayerDir, MetadataFileName)
	if _, statErr := os.Stat(legacy); statErr == nil {
		return legacy, filepath.Join(root, TextLayerDir), nil
	}
	return "", "", errors.NewNotFound("metadata", root)
}

// Read loads and parses the metadata document beneath root, using the same
// fallback chain as Locate.
func Read(root string) (*Metadata, error) {
	metaPath, _, err := Locate(root)
	if err != nil {
		return nil, err
	}
	return ReadFile(metaPath)
}

// ReadFile loads and parses a metadata document at an exact path.
func ReadFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("metadata", path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "metadata", Path: path, Message: err.Error(), Err: err}
	}
	return m, nil
}

// Write rewrites the whole metadata document beneath root, honoring the
// legacy text-1 layout when that is where the document lives. When neither
// location exists the document is written at root/metadata.json.
func Write(root string, m *Metadata) error {
	metaPath, _, err := Locate(root)
	if err != nil {
		metaPath = filepath.Join(root, MetadataFileName)
	}
	data, err := m.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return errors.NewIO("write", metaPath, err)
	}
	return nil
}
