package transfer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
	"github.com/FocuswithJustin/JuniperScribe/core/usfm"
)

// buildTree writes files under root. Keys are slash-separated relative
// paths; parent directories are created implicitly.
func buildTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRun_CopyVerbatim(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	buildTree(t, src, map[string]string{
		"metadata.json":        "{}",
		"ingredients/GEN.json": "{\"book\":{\"bookCode\":\"GEN\"}}",
		"audio/ingredients/GEN/1/1_1_1_default.wav": "RIFF",
	})

	e := New(nil)
	if err := e.Run(context.Background(), src, dst, CopyVerbatim); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, rel := range []string{
		"metadata.json",
		"ingredients/GEN.json",
		"audio/ingredients/GEN/1/1_1_1_default.wav",
	} {
		got, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("%s not transferred: %v", rel, err)
			continue
		}
		want, _ := os.ReadFile(filepath.Join(src, filepath.FromSlash(rel)))
		if string(got) != string(want) {
			t.Errorf("%s content mismatch", rel)
		}
	}
}

func TestRun_ProgressArithmetic(t *testing.T) {
	// 5 files at the root, 1 directory holding 2 more files: 8 entries
	// plus the finalize unit is 9.
	src := t.TempDir()
	buildTree(t, src, map[string]string{
		"a.txt":       "a",
		"b.txt":       "b",
		"c.txt":       "c",
		"d.txt":       "d",
		"e.txt":       "e",
		"inner/f.txt": "f",
		"inner/g.txt": "g",
	})

	var dones []int
	var total int
	e := New(func(d, tot int) {
		dones = append(dones, d)
		total = tot
	})
	if err := e.Run(context.Background(), src, filepath.Join(t.TempDir(), "out"), CopyVerbatim); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if total != 9 {
		t.Errorf("total = %d; want 9", total)
	}
	if len(dones) != 9 {
		t.Fatalf("observer called %d times; want 9", len(dones))
	}
	for i, d := range dones {
		if d != i+1 {
			t.Fatalf("progress not monotonic: step %d reported %d", i, d)
		}
	}
	if dones[len(dones)-1] != total {
		t.Error("final progress should equal total")
	}
}

func TestRun_CopyWithConvert(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	doc := &usfm.Document{
		Book: usfm.Book{BookCode: "GEN", Title: "Genesis"},
		Chapters: []*usfm.Chapter{{
			ChapterNumber: "1",
			Contents:      []*usfm.Verse{{VerseNumber: "1", VerseText: "In the beginning."}},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	buildTree(t, src, map[string]string{
		"metadata.json":        "{\"format\":\"scripture burrito\"}",
		"versification.json":   "{\"maxVerses\":{}}",
		"ingredients/GEN.json": string(data),
	})

	e := New(nil)
	if err := e.Run(context.Background(), src, dst, CopyWithConvert); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Cached documents come out as markup.
	markup, err := os.ReadFile(filepath.Join(dst, "ingredients", "GEN.usfm"))
	if err != nil {
		t.Fatalf("converted markup missing: %v", err)
	}
	if !strings.Contains(string(markup), `\id GEN`) || !strings.Contains(string(markup), `\v 1 In the beginning.`) {
		t.Errorf("markup content wrong:\n%s", markup)
	}
	if _, err := os.Stat(filepath.Join(dst, "ingredients", "GEN.json")); !os.IsNotExist(err) {
		t.Error("converted source JSON should not be carried across")
	}

	// Settings documents stay verbatim JSON.
	for _, rel := range []string{"metadata.json", "versification.json"} {
		got, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Errorf("%s not transferred: %v", rel, err)
			continue
		}
		want, _ := os.ReadFile(filepath.Join(src, rel))
		if string(got) != string(want) {
			t.Errorf("%s should be copied verbatim", rel)
		}
	}
}

func TestRun_SkipsBadItem(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	buildTree(t, src, map[string]string{
		"good.json":   "{\"book\":{\"bookCode\":\"GEN\"},\"chapters\":[]}",
		"broken.json": "not json at all",
		"plain.txt":   "hello",
	})

	e := New(nil)
	if err := e.Run(context.Background(), src, dst, CopyWithConvert); err != nil {
		t.Fatalf("Run should tolerate per-item failures: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "good.usfm")); err != nil {
		t.Error("good.json should still be converted")
	}
	if _, err := os.Stat(filepath.Join(dst, "plain.txt")); err != nil {
		t.Error("plain.txt should still be copied")
	}
	if _, err := os.Stat(filepath.Join(dst, "broken.usfm")); !os.IsNotExist(err) {
		t.Error("broken.json should be skipped")
	}
}

func TestRun_FatalCleansDestination(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")

	e := New(nil)
	err := e.Run(context.Background(), filepath.Join(t.TempDir(), "absent"), dst, CopyVerbatim)
	if err == nil {
		t.Fatal("Run with missing source should fail")
	}

	var terr *errors.TransferError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T; want *errors.TransferError", err)
	}
	if !terr.CleanedUp {
		t.Error("destination should be reported cleaned up")
	}
	if _, serr := os.Stat(dst); !os.IsNotExist(serr) {
		t.Error("destination tree should be removed")
	}
}

func TestRun_Idempotent(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	buildTree(t, src, map[string]string{"a.txt": "one", "sub/b.txt": "two"})

	e := New(nil)
	for i := 0; i < 2; i++ {
		if err := e.Run(context.Background(), src, dst, CopyVerbatim); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	got, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	if err != nil || string(got) != "two" {
		t.Errorf("repeat run content = %q, %v", got, err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	buildTree(t, src, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(nil)
	if err := e.Run(ctx, src, dst, CopyVerbatim); err == nil {
		t.Fatal("Run with cancelled context should fail")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("destination should be cleaned up after cancellation")
	}
}

func TestOrderedNames_TextLayer(t *testing.T) {
	dir := t.TempDir()
	buildTree(t, dir, map[string]string{
		"zz.txt":               "z",
		"metadata.json":        "{}",
		"ingredients/GEN.json": "{}",
		"aa.txt":               "a",
		"scribe-settings.json": "{}",
	})
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	got := orderedNames("text-1", entries)
	if got[0] != "metadata.json" || got[1] != "ingredients" {
		t.Errorf("text-1 ordering wrong: %v", got)
	}
	if len(got) != len(entries) {
		t.Errorf("ordering dropped entries: %v", got)
	}

	// Outside text-1 the directory order is untouched.
	plain := orderedNames("ingredients", entries)
	if len(plain) != len(entries) {
		t.Errorf("plain ordering dropped entries: %v", plain)
	}
}
