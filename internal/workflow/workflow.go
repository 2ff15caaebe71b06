// Package workflow implements the high-level operations behind the CLI:
// importing and exporting projects and references, recording verses and
// reconciling metadata with the files actually on disk.
package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/JuniperScribe/core/burrito"
	"github.com/FocuswithJustin/JuniperScribe/core/errors"
	"github.com/FocuswithJustin/JuniperScribe/core/resolve"
	"github.com/FocuswithJustin/JuniperScribe/core/transfer"
	"github.com/FocuswithJustin/JuniperScribe/internal/fileutil"
	"github.com/FocuswithJustin/JuniperScribe/internal/logging"
	"github.com/FocuswithJustin/JuniperScribe/internal/registry"
	"github.com/FocuswithJustin/JuniperScribe/internal/session"
)

// Subdirectories of the workspace base holding imported trees.
const (
	ProjectsDir   = "projects"
	ReferencesDir = "references"
)

// Manager wires the registry, the transfer engine and the session
// store into the operations the CLI exposes.
type Manager struct {
	base     string
	registry *registry.Store
	sessions *session.Store // optional
	progress transfer.ProgressFunc
}

// New creates a manager rooted at base. sessions and observer may be
// nil.
func New(base string, reg *registry.Store, sessions *session.Store, observer transfer.ProgressFunc) *Manager {
	return &Manager{base: base, registry: reg, sessions: sessions, progress: observer}
}

// ProjectPath returns where a project named name lives under the base.
func (m *Manager) ProjectPath(name string) string {
	return filepath.Join(m.base, ProjectsDir, name)
}

// ReferencePath returns where a reference named name lives under the base.
func (m *Manager) ReferencePath(name string) string {
	return filepath.Join(m.base, ReferencesDir, name)
}

// ImportProject copies the project tree at src into the workspace and
// registers it. The name comes from the metadata display name.
func (m *Manager) ImportProject(ctx context.Context, src string) (string, error) {
	meta, err := burrito.Read(src)
	if err != nil {
		return "", err
	}
	if err := meta.Validate(); err != nil {
		return "", err
	}
	name := meta.DisplayName()
	if name == "" {
		return "", errors.NewValidation("identification.name", "project has no display name")
	}

	reg, err := m.registry.Load()
	if err != nil {
		return "", err
	}
	if _, ok := reg.FindProject(name); ok {
		return "", errors.Wrapf(errors.ErrAlreadyExists, "project %q", name)
	}

	dst := m.ProjectPath(name)
	engine := transfer.New(m.progress)
	if err := engine.Run(ctx, src, dst, transfer.CopyVerbatim); err != nil {
		return "", err
	}

	if err := m.registry.AddProject(registry.Project{
		ProjectName: name,
		ProjectPath: dst,
	}); err != nil {
		os.RemoveAll(dst)
		return "", err
	}
	logging.Info("project imported", "name", name, "path", dst)
	return name, nil
}

// ImportReference copies the reference tree at src into the workspace
// and registers it. Trees without burrito metadata are accepted when
// they carry a manifest.yaml descriptor; they register as plain Bible
// references.
func (m *Manager) ImportReference(ctx context.Context, src string) (string, error) {
	var name string
	refType := []string{registry.TypeBible}

	meta, err := burrito.Read(src)
	switch {
	case err == nil:
		if verr := meta.Validate(); verr != nil {
			return "", verr
		}
		name = meta.DisplayName()
		if meta.HasAudioIngredients() {
			refType = append(refType, registry.TypeAudio)
		}
	case errors.Is(err, errors.ErrNotFound):
		if _, serr := os.Stat(filepath.Join(src, resolve.ManifestFileName)); serr != nil {
			return "", err
		}
		name = filepath.Base(src)
	default:
		return "", err
	}
	if name == "" {
		return "", errors.NewValidation("identification.name", "reference has no display name")
	}

	reg, err := m.registry.Load()
	if err != nil {
		return "", err
	}
	if _, ok := reg.FindReference(name); ok {
		return "", errors.Wrapf(errors.ErrAlreadyExists, "reference %q", name)
	}

	dst := m.ReferencePath(name)
	engine := transfer.New(m.progress)
	if err := engine.Run(ctx, src, dst, transfer.CopyVerbatim); err != nil {
		return "", err
	}

	if err := m.registry.AddReference(registry.Reference{
		ReferenceName: name,
		ReferencePath: dst,
		ReferenceType: refType,
	}); err != nil {
		os.RemoveAll(dst)
		return "", err
	}
	logging.Info("reference imported", "name", name, "path", dst, "types", strings.Join(refType, ","))
	return name, nil
}

// ExportProject writes the project out to {dst}/{name}, rendering
// cached documents back to markup. An existing target is removed first
// when overwrite is set, otherwise the export is refused.
func (m *Manager) ExportProject(ctx context.Context, name, dst string, overwrite bool) (string, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return "", err
	}
	p, ok := reg.FindProject(name)
	if !ok {
		return "", errors.NewNotFound("project", name)
	}

	target := filepath.Join(dst, name)
	if _, err := os.Stat(target); err == nil {
		if !overwrite {
			return "", errors.Wrapf(errors.ErrAlreadyExists, "export target %s", target)
		}
		if err := os.RemoveAll(target); err != nil {
			return "", errors.NewIO("remove", target, err)
		}
	}

	engine := transfer.New(m.progress)
	if err := engine.Run(ctx, p.ProjectPath, target, transfer.CopyWithConvert); err != nil {
		return "", err
	}
	logging.Info("project exported", "name", name, "target", target)
	return target, nil
}

// DeleteProject removes a project from the registry and from disk,
// dropping any saved session selection.
func (m *Manager) DeleteProject(ctx context.Context, name string) error {
	if err := m.registry.RemoveProject(name); err != nil {
		return err
	}
	if m.sessions != nil {
		if err := m.sessions.Delete(ctx, name); err != nil {
			logging.Warn("session selection not dropped", "project", name, "error", err)
		}
	}
	logging.Info("project deleted", "name", name)
	return nil
}

// DeleteReference removes a reference from the registry and from disk.
func (m *Manager) DeleteReference(name string) error {
	if err := m.registry.RemoveReference(name); err != nil {
		return err
	}
	logging.Info("reference deleted", "name", name)
	return nil
}

// audioRoot returns the directory the deterministic audio keys are
// relative to. Projects whose metadata lives in the text layer anchor
// their recordings there.
func audioRoot(projectRoot string) string {
	if _, contentRoot, err := burrito.Locate(projectRoot); err == nil {
		return contentRoot
	}
	return projectRoot
}

// RecordVerse moves a finished recording to its deterministic location
// inside the project and tracks it in the metadata. A metadata failure
// does not lose the recording: it is logged and the operation still
// succeeds.
func (m *Manager) RecordVerse(project, book string, chapter, verse int, wavPath string) (string, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return "", err
	}
	p, ok := reg.FindProject(project)
	if !ok {
		return "", errors.NewNotFound("project", project)
	}

	root := audioRoot(p.ProjectPath)
	key := burrito.AudioKey(book, chapter, verse)
	target := filepath.Join(root, filepath.FromSlash(key))

	if err := fileutil.CopyFile(wavPath, target); err != nil {
		return "", errors.NewIO("copy", target, err)
	}
	if err := os.Remove(wavPath); err != nil {
		logging.Warn("source recording not removed", "path", wavPath, "error", err)
	}

	if err := burrito.AddAudioIngredient(p.ProjectPath, book, chapter, verse, target); err != nil {
		logging.MetadataWarning("add audio ingredient", p.ProjectPath, err,
			"book", book, "chapter", chapter, "verse", verse)
	}
	return target, nil
}

// DeleteRecording removes a verse recording and its metadata entry.
func (m *Manager) DeleteRecording(project, book string, chapter, verse int) error {
	reg, err := m.registry.Load()
	if err != nil {
		return err
	}
	p, ok := reg.FindProject(project)
	if !ok {
		return errors.NewNotFound("project", project)
	}

	root := audioRoot(p.ProjectPath)
	key := burrito.AudioKey(book, chapter, verse)
	target := filepath.Join(root, filepath.FromSlash(key))

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return errors.NewIO("remove", target, err)
	}
	if err := burrito.RemoveAudioIngredient(p.ProjectPath, book, chapter, verse); err != nil {
		logging.MetadataWarning("remove audio ingredient", p.ProjectPath, err,
			"book", book, "chapter", chapter, "verse", verse)
	}
	return nil
}

// ReconcileReport summarizes a reconcile pass.
type ReconcileReport struct {
	Added   []string // keys added for recordings found on disk
	Dropped []string // keys dropped because their file is gone
}

// Reconcile walks the recordings a project actually has on disk and
// repairs the metadata in both directions: untracked recordings are
// added, entries whose file is gone are dropped.
func (m *Manager) Reconcile(project string) (*ReconcileReport, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	p, ok := reg.FindProject(project)
	if !ok {
		return nil, errors.NewNotFound("project", project)
	}

	meta, err := burrito.Read(p.ProjectPath)
	if err != nil {
		return nil, err
	}
	root := audioRoot(p.ProjectPath)
	report := &ReconcileReport{}

	// On-disk recordings missing from the metadata.
	audioDir := filepath.Join(root, "audio", "ingredients")
	err = filepath.WalkDir(audioDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}
		book, chapter, verse, ok := parseRecordingPath(audioDir, path)
		if !ok {
			logging.Warn("unrecognized recording path", "path", path)
			return nil
		}
		key := burrito.AudioKey(book, chapter, verse)
		if _, tracked := meta.Ingredients[key]; tracked {
			return nil
		}
		if err := burrito.AddAudioIngredient(p.ProjectPath, book, chapter, verse, path); err != nil {
			return err
		}
		report.Added = append(report.Added, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Metadata entries whose recording is gone.
	for key, ing := range meta.Ingredients {
		if ing.Kind() != burrito.KindAudio {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(key))); !os.IsNotExist(err) {
			continue
		}
		book, chapter, verse, ok := parseRecordingKey(key)
		if !ok {
			continue
		}
		if err := burrito.RemoveAudioIngredient(p.ProjectPath, book, chapter, verse); err != nil {
			return nil, err
		}
		report.Dropped = append(report.Dropped, key)
	}

	logging.Info("reconcile complete", "project", project,
		"added", len(report.Added), "dropped", len(report.Dropped))
	return report, nil
}

// parseRecordingPath recovers book, chapter and verse from a recording
// under audioDir laid out as {book}/{chapter}/{chapter}_{verse}_1_default.wav.
func parseRecordingPath(audioDir, path string) (book string, chapter, verse int, ok bool) {
	rel, err := filepath.Rel(audioDir, path)
	if err != nil {
		return "", 0, 0, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return "", 0, 0, false
	}
	return parseRecordingName(parts[0], parts[2])
}

// parseRecordingKey recovers book, chapter and verse from a metadata
// ingredient key.
func parseRecordingKey(key string) (book string, chapter, verse int, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "audio" || parts[1] != "ingredients" {
		return "", 0, 0, false
	}
	return parseRecordingName(parts[2], parts[4])
}

func parseRecordingName(book, file string) (string, int, int, bool) {
	fields := strings.Split(strings.TrimSuffix(file, filepath.Ext(file)), "_")
	if len(fields) != 4 {
		return "", 0, 0, false
	}
	chapter, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", 0, 0, false
	}
	verse, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, 0, false
	}
	return book, chapter, verse, true
}
