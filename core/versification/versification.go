// Package versification loads the static table that gives, per book, the
// chapter count and per-chapter maximum verse count. Projects ship the table
// as versification.json next to their metadata, so it is project data rather
// than compiled-in constants.
package versification

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

// FileName is the on-disk name of the versification table.
const FileName = "versification.json"

// Table maps book codes to per-chapter maximum verse counts. The slice index
// is chapter-1; values are kept as strings on disk and parsed lazily, which
// matches the file format the mobile tooling produced.
type Table struct {
	MaxVerses map[string][]string `json:"maxVerses"`
}

// Parse decodes a versification table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, &errors.ParseError{Format: "versification", Message: err.Error(), Err: err}
	}
	if t.MaxVerses == nil {
		return nil, errors.NewParse("versification", "", "missing maxVerses")
	}
	return &t, nil
}

// Load reads root/versification.json.
func Load(root string) (*Table, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("versification table", path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "versification", Path: path, Message: err.Error(), Err: err}
	}
	return t, nil
}

// ChapterCount returns the number of chapters in a book, or 0 when the book
// is absent from the table.
func (t *Table) ChapterCount(book string) int {
	return len(t.MaxVerses[book])
}

// VerseCount returns the maximum verse number of a chapter, or 0 when the
// book or chapter is absent.
func (t *Table) VerseCount(book string, chapter int) int {
	verses := t.MaxVerses[book]
	if chapter < 1 || chapter > len(verses) {
		return 0
	}
	n, err := strconv.Atoi(verses[chapter-1])
	if err != nil {
		return 0
	}
	return n
}

// HasBook reports whether the table covers the book.
func (t *Table) HasBook(book string) bool {
	_, ok := t.MaxVerses[book]
	return ok
}
