// Package usfm converts between USFM markup and the chapter/verse document
// form stored alongside project metadata. Parse and Serialize are pure; file
// handling belongs to the callers.
package usfm

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

// Document is the structured form of one USFM book.
type Document struct {
	Book     Book       `json:"book"`
	Chapters []*Chapter `json:"chapters"`
}

// Book identifies the book a document belongs to.
type Book struct {
	BookCode string `json:"bookCode"`
	Title    string `json:"title,omitempty"`
}

// Chapter holds the verses of one chapter. ChapterNumber is kept as a string
// to match the on-disk JSON produced by the original converter.
type Chapter struct {
	ChapterNumber string   `json:"chapterNumber"`
	Contents      []*Verse `json:"contents"`
}

// Verse is a single verse entry.
type Verse struct {
	VerseNumber string `json:"verseNumber"`
	VerseText   string `json:"verseText"`
}

// FindChapter returns the chapter whose number equals n, or nil.
func (d *Document) FindChapter(n string) *Chapter {
	for _, c := range d.Chapters {
		if c.ChapterNumber == n {
			return c
		}
	}
	return nil
}

// FindVerse returns the verse whose number equals n, or nil.
func (c *Chapter) FindVerse(n string) *Verse {
	for _, v := range c.Contents {
		if v.VerseNumber == n {
			return v
		}
	}
	return nil
}

var verseNumRegex = regexp.MustCompile(`^(\d+(?:-\d+)?)\s*`)

// Common USFM book IDs
var bookNames = map[string]string{
	"GEN": "Genesis", "EXO": "Exodus", "LEV": "Leviticus", "NUM": "Numbers",
	"DEU": "Deuteronomy", "JOS": "Joshua", "JDG": "Judges", "RUT": "Ruth",
	"1SA": "1 Samuel", "2SA": "2 Samuel", "1KI": "1 Kings", "2KI": "2 Kings",
	"1CH": "1 Chronicles", "2CH": "2 Chronicles", "EZR": "Ezra", "NEH": "Nehemiah",
	"EST": "Esther", "JOB": "Job", "PSA": "Psalms", "PRO": "Proverbs",
	"ECC": "Ecclesiastes", "SNG": "Song of Solomon", "ISA": "Isaiah", "JER": "Jeremiah",
	"LAM": "Lamentations", "EZK": "Ezekiel", "DAN": "Daniel", "HOS": "Hosea",
	"JOL": "Joel", "AMO": "Amos", "OBA": "Obadiah", "JON": "Jonah",
	"MIC": "Micah", "NAM": "Nahum", "HAB": "Habakkuk", "ZEP": "Zephaniah",
	"HAG": "Haggai", "ZEC": "Zechariah", "MAL": "Malachi",
	"MAT": "Matthew", "MRK": "Mark", "LUK": "Luke", "JHN": "John",
	"ACT": "Acts", "ROM": "Romans", "1CO": "1 Corinthians", "2CO": "2 Corinthians",
	"GAL": "Galatians", "EPH": "Ephesians", "PHP": "Philippians", "COL": "Colossians",
	"1TH": "1 Thessalonians", "2TH": "2 Thessalonians", "1TI": "1 Timothy", "2TI": "2 Timothy",
	"TIT": "Titus", "PHM": "Philemon", "HEB": "Hebrews", "JAS": "James",
	"1PE": "1 Peter", "2PE": "2 Peter", "1JN": "1 John", "2JN": "2 John",
	"3JN": "3 John", "JUD": "Jude", "REV": "Revelation",
}

// BookName returns the display name for a USFM book code, or the code itself
// when unknown.
func BookName(code string) string {
	if name, ok := bookNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// KnownBooks returns all known book codes in sorted order.
func KnownBooks() []string {
	codes := make([]string, 0, len(bookNames))
	for code := range bookNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Parse converts USFM markup into a Document. Markers that carry no verse
// content (headings, table of contents, formatting) are dropped; inline
// character markers within verse text are stripped.
func Parse(markup string) (*Document, error) {
	doc := &Document{Chapters: []*Chapter{}}

	var currentChapter *Chapter
	var currentVerse *Verse

	flushVerse := func() {
		if currentVerse != nil {
			currentVerse.VerseText = strings.TrimSpace(currentVerse.VerseText)
			currentVerse = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(markup))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, "\\") {
			// Continuation line of the current verse.
			if currentVerse != nil {
				currentVerse.VerseText += " " + stripInlineMarkers(trimmed)
			}
			continue
		}

		parts := strings.SplitN(trimmed, " ", 2)
		marker := strings.TrimPrefix(parts[0], "\\")
		var value string
		if len(parts) > 1 {
			value = strings.TrimSpace(parts[1])
		}

		switch marker {
		case "id":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				doc.Book.BookCode = strings.ToUpper(fields[0])
				doc.Book.Title = BookName(doc.Book.BookCode)
			}

		case "h":
			if value != "" {
				doc.Book.Title = value
			}

		case "c":
			flushVerse()
			num := strings.Fields(value)
			if len(num) == 0 {
				return nil, errors.NewParse("USFM", "", "chapter marker without number")
			}
			currentChapter = &Chapter{ChapterNumber: num[0], Contents: []*Verse{}}
			doc.Chapters = append(doc.Chapters, currentChapter)

		case "v":
			flushVerse()
			if currentChapter == nil {
				return nil, errors.NewParse("USFM", "", "verse marker before any chapter marker")
			}
			m := verseNumRegex.FindStringSubmatch(value)
			if m == nil {
				return nil, errors.NewParse("USFM", "", fmt.Sprintf("verse marker without number: %q", value))
			}
			currentVerse = &Verse{
				VerseNumber: m[1],
				VerseText:   stripInlineMarkers(strings.TrimSpace(value[len(m[0]):])),
			}
			currentChapter.Contents = append(currentChapter.Contents, currentVerse)

		case "p", "m", "pi", "mi", "nb", "q", "q1", "q2", "q3", "b":
			// Paragraph-level markers may carry verse text on the same line.
			if currentVerse != nil && value != "" {
				currentVerse.VerseText += " " + stripInlineMarkers(value)
			}

		default:
			// Headings, TOC entries and other markers carry no verse content.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewParse("USFM", "", err.Error())
	}

	flushVerse()

	if doc.Book.BookCode == "" {
		return nil, errors.NewParse("USFM", "", "missing \\id marker")
	}
	return doc, nil
}

// Serialize converts a Document back to USFM markup. The output is a
// normalized rendering: one verse per line, paragraph break at each chapter.
func Serialize(doc *Document) (string, error) {
	if doc == nil || doc.Book.BookCode == "" {
		return "", errors.NewParse("document", "", "document has no book code")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\\id %s\n", doc.Book.BookCode)
	if doc.Book.Title != "" {
		fmt.Fprintf(&b, "\\h %s\n", doc.Book.Title)
	}
	for _, ch := range doc.Chapters {
		fmt.Fprintf(&b, "\\c %s\n\\p\n", ch.ChapterNumber)
		for _, v := range ch.Contents {
			fmt.Fprintf(&b, "\\v %s %s\n", v.VerseNumber, v.VerseText)
		}
	}
	return b.String(), nil
}

var inlineMarkerRegex = regexp.MustCompile(`\\[+]?[a-zA-Z0-9]+\*?\s?`)

// stripInlineMarkers removes character-level USFM markers (\nd ...\nd*, \w,
// footnotes already split out by line handling) from verse text.
func stripInlineMarkers(s string) string {
	cleaned := inlineMarkerRegex.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// IsMarkupPath reports whether the file name carries a USFM markup extension.
func IsMarkupPath(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".usfm") || strings.HasSuffix(lower, ".sfm")
}

// CachePathFor derives the converted-JSON path for a markup path by replacing
// the markup extension.
func CachePathFor(markupPath string) string {
	lower := strings.ToLower(markupPath)
	switch {
	case strings.HasSuffix(lower, ".usfm"):
		return markupPath[:len(markupPath)-len(".usfm")] + ".json"
	case strings.HasSuffix(lower, ".sfm"):
		return markupPath[:len(markupPath)-len(".sfm")] + ".json"
	default:
		return markupPath + ".json"
	}
}
