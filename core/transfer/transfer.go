// Package transfer implements bulk copy of project and reference trees,
// optionally converting cached scripture documents back to source markup
// on the way out.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
	"github.com/FocuswithJustin/JuniperScribe/core/usfm"
	"github.com/FocuswithJustin/JuniperScribe/internal/fileutil"
	"github.com/FocuswithJustin/JuniperScribe/internal/logging"
)

// Mode selects how file contents are carried across.
type Mode int

const (
	// CopyVerbatim copies every file byte for byte.
	CopyVerbatim Mode = iota

	// CopyWithConvert renders cached .json scripture documents back to
	// .usfm markup; settings files are still copied verbatim.
	CopyWithConvert
)

func (m Mode) String() string {
	switch m {
	case CopyVerbatim:
		return "verbatim"
	case CopyWithConvert:
		return "convert"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// verbatimNames are settings and descriptor files that are never run
// through the document codec, whatever the mode.
var verbatimNames = map[string]bool{
	"metadata.json":        true,
	"scribe-settings.json": true,
	"versification.json":   true,
}

// ProgressFunc observes transfer progress. done increases monotonically
// from 0 to total; done == total only after the finalize unit.
type ProgressFunc func(done, total int)

// Engine performs sequential bulk transfers. The zero value is usable;
// Progress is optional.
type Engine struct {
	Progress ProgressFunc

	opID  string
	done  int
	total int
}

// New creates an engine with a progress observer. observer may be nil.
func New(observer ProgressFunc) *Engine {
	return &Engine{Progress: observer}
}

// Run transfers the tree rooted at src into dst. dst is created if
// absent. Individual unreadable files are logged and skipped; a failure
// to list or recurse is fatal, in which case the destination tree is
// removed best-effort and a single TransferError is returned.
func (e *Engine) Run(ctx context.Context, src, dst string, mode Mode) error {
	e.opID = uuid.New().String()
	e.done = 0

	count, err := countEntries(src)
	if err != nil {
		return e.fatal("transfer", src, dst, err)
	}
	e.total = count + 1 // finalize padding unit

	logging.TransferEvent("transfer started", e.opID, src, dst,
		"mode", mode.String(), "units", e.total)

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return e.fatal("transfer", src, dst, err)
	}

	if err := e.transferDir(ctx, src, dst, mode); err != nil {
		return e.fatal("transfer", src, dst, err)
	}

	e.advance() // finalize
	logging.TransferEvent("transfer complete", e.opID, src, dst, "units", e.done)
	return nil
}

// countEntries counts files and directories under root, excluding root
// itself.
func countEntries(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root {
			count++
		}
		return nil
	})
	return count, err
}

func (e *Engine) transferDir(ctx context.Context, src, dst string, mode Mode) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, name := range orderedNames(filepath.Base(src), entries) {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(src, name)
		info, err := os.Lstat(srcPath)
		if err != nil {
			return err
		}

		if info.IsDir() {
			sub := filepath.Join(dst, name)
			if err := os.MkdirAll(sub, 0o755); err != nil {
				return err
			}
			e.advance()
			if err := e.transferDir(ctx, srcPath, sub, mode); err != nil {
				return err
			}
			continue
		}

		if err := e.transferFile(srcPath, dst, name, mode); err != nil {
			logging.TransferItemError(e.opID, srcPath, err)
		}
		e.advance()
	}
	return nil
}

// orderedNames returns entry names in transfer order. Inside a text
// layer directory the metadata document and the ingredients tree go
// first so the destination is self-describing as early as possible.
func orderedNames(dirName string, entries []os.DirEntry) []string {
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	if dirName != "text-1" {
		return names
	}

	ordered := make([]string, 0, len(names))
	for _, want := range []string{"metadata.json", "ingredients"} {
		for _, n := range names {
			if n == want {
				ordered = append(ordered, n)
			}
		}
	}
	for _, n := range names {
		if n != "metadata.json" && n != "ingredients" {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

func (e *Engine) transferFile(srcPath, dstDir, name string, mode Mode) error {
	if mode == CopyWithConvert && !verbatimNames[name] && strings.EqualFold(filepath.Ext(name), ".json") {
		return convertToMarkup(srcPath, dstDir, name)
	}
	return fileutil.CopyFile(srcPath, filepath.Join(dstDir, name))
}

// convertToMarkup renders a cached scripture document back to markup
// under the same base name with a .usfm extension.
func convertToMarkup(srcPath, dstDir, name string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	doc := &usfm.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return errors.Wrap(err, "not a cached scripture document")
	}
	markup, err := usfm.Serialize(doc)
	if err != nil {
		return err
	}
	out := strings.TrimSuffix(name, filepath.Ext(name)) + ".usfm"
	return os.WriteFile(filepath.Join(dstDir, out), []byte(markup), 0o644)
}

func (e *Engine) advance() {
	e.done++
	if e.Progress != nil {
		e.Progress(e.done, e.total)
	}
}

// fatal removes the partially written destination, logs the outcome and
// wraps the cause in a TransferError.
func (e *Engine) fatal(op, src, dst string, err error) error {
	cleaned := os.RemoveAll(dst) == nil
	logging.TransferEvent("transfer failed", e.opID, src, dst,
		"cleaned_up", cleaned, "error", err)
	return &errors.TransferError{Op: op, Dst: dst, CleanedUp: cleaned, Err: err}
}
