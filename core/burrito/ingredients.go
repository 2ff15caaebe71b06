package burrito

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

// AudioKey returns the deterministic ingredient key for a verse recording.
// Every recording of the same verse lands on the same key, so re-recording
// overwrites rather than accumulates.
func AudioKey(book string, chapter, verse int) string {
	return fmt.Sprintf("audio/ingredients/%s/%d/%d_%d_1_default.wav", book, chapter, chapter, verse)
}

// VerseRef formats a chapter:verse scope entry.
func VerseRef(chapter, verse int) string {
	return fmt.Sprintf("%d:%d", chapter, verse)
}

// MD5Hex hashes the full contents of the file at path.
func MD5Hex(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", errors.NewIO("read", filePath, err)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// AddAudioIngredient upserts the ingredient record for a verse recording:
// deterministic key, MD5 checksum and size taken from the file at filePath,
// scope {book: [chapter:verse]}. The whole document is rewritten. Callers in
// the recording workflow treat a returned error as non-fatal; the captured
// audio is never discarded over a bookkeeping failure.
func AddAudioIngredient(root, book string, chapter, verse int, filePath string) error {
	m, err := Read(root)
	if err != nil {
		return err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return errors.NewIO("stat", filePath, err)
	}
	sum, err := MD5Hex(filePath)
	if err != nil {
		return err
	}

	key := AudioKey(book, chapter, verse)
	m.Ingredients[key] = &Ingredient{
		Checksum: &Checksum{MD5: sum},
		MIMEType: MIMEAudioWAV,
		Size:     info.Size(),
		Scope:    map[string][]string{book: {VerseRef(chapter, verse)}},
	}
	return Write(root, m)
}

// RemoveAudioIngredient deletes the verse recording's ingredient record.
// Removing a key that is not present is a no-op.
func RemoveAudioIngredient(root, book string, chapter, verse int) error {
	m, err := Read(root)
	if err != nil {
		return err
	}
	key := AudioKey(book, chapter, verse)
	if _, ok := m.Ingredients[key]; !ok {
		return nil
	}
	delete(m.Ingredients, key)
	return Write(root, m)
}

// AddTextIngredient upserts a USFM text ingredient covering the named books.
// The key is the file's path relative to the content root, slash-separated.
func AddTextIngredient(root, relPath string, size int64, books []string) error {
	m, err := Read(root)
	if err != nil {
		return err
	}
	scope := make(map[string][]string, len(books))
	for _, b := range books {
		scope[b] = []string{}
	}
	m.Ingredients[path.Clean(relPath)] = &Ingredient{
		MIMEType: MIMETextUSFM,
		Size:     size,
		Scope:    scope,
	}
	return Write(root, m)
}

// HasAudioIngredients reports whether any tracked ingredient is audio. Used
// on reference import to decide whether the resource carries an audio layer.
func (m *Metadata) HasAudioIngredients() bool {
	for _, ing := range m.Ingredients {
		if ing.Kind() == KindAudio {
			return true
		}
	}
	return false
}

// FindTextIngredient returns the key of the first USFM ingredient whose scope
// covers the book.
func (m *Metadata) FindTextIngredient(book string) (string, *Ingredient, bool) {
	for key, ing := range m.Ingredients {
		if ing.Kind() == KindText && ing.CoversBook(book) {
			return key, ing, true
		}
	}
	return "", nil, false
}

// FindAudioIngredient returns the key of the audio ingredient whose scope
// covers chapter:verse of the book.
func (m *Metadata) FindAudioIngredient(book string, chapter, verse int) (string, *Ingredient, bool) {
	for key, ing := range m.Ingredients {
		if ing.Kind() == KindAudio && ing.CoversVerse(book, chapter, verse) {
			return key, ing, true
		}
	}
	return "", nil, false
}
