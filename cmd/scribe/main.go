// Command scribe manages scripture recording workspaces: importing and
// exporting projects and references, tracking verse recordings and
// resolving reference text for a selection.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperScribe/core/burrito"
	"github.com/FocuswithJustin/JuniperScribe/core/errors"
	"github.com/FocuswithJustin/JuniperScribe/core/resolve"
	"github.com/FocuswithJustin/JuniperScribe/core/scope"
	"github.com/FocuswithJustin/JuniperScribe/core/versification"
	"github.com/FocuswithJustin/JuniperScribe/internal/archive"
	"github.com/FocuswithJustin/JuniperScribe/internal/logging"
	"github.com/FocuswithJustin/JuniperScribe/internal/registry"
	"github.com/FocuswithJustin/JuniperScribe/internal/session"
	"github.com/FocuswithJustin/JuniperScribe/internal/workflow"
)

const version = "0.1.0"

// CLI defines the command-line interface for scribe.
var CLI struct {
	// Global flags
	Base    string `name:"base" help:"Workspace base directory" type:"path" default:"~/.juniper-scribe"`
	Verbose bool   `name:"verbose" short:"v" help:"Enable debug logging"`
	JSONLog bool   `name:"json-log" help:"Emit logs as JSON"`

	// Command groups (noun-first organization)
	Project   ProjectGroup   `cmd:"" help:"Project operations (import, export, list, delete)"`
	Reference ReferenceGroup `cmd:"" help:"Reference operations (import, list, delete)"`
	Record    RecordGroup    `cmd:"" help:"Verse recording operations"`
	Verse     VerseGroup     `cmd:"" help:"Verse text and audio lookup"`
	Snapshot  SnapshotGroup  `cmd:"" help:"Project snapshot archives"`
	User      UserGroup      `cmd:"" help:"User settings"`
	Version   VersionCmd     `cmd:"" help:"Print version information"`
}

// appContext carries the initialized stores into command Run methods.
type appContext struct {
	base     string
	registry *registry.Store
	sessions *session.Store
	manager  *workflow.Manager
	ctx      context.Context
}

func newAppContext(base string) (*appContext, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	reg := registry.NewStore(base)
	sessions, err := session.Open(base)
	if err != nil {
		return nil, err
	}
	observer := func(done, total int) {
		logging.Debug("transfer progress", "done", done, "total", total)
	}
	return &appContext{
		base:     base,
		registry: reg,
		sessions: sessions,
		manager:  workflow.New(base, reg, sessions, observer),
		ctx:      context.Background(),
	}, nil
}

func (a *appContext) Close() {
	if err := a.sessions.Close(); err != nil {
		logging.Warn("session store close failed", "error", err)
	}
}

// ProjectGroup contains project lifecycle operations.
type ProjectGroup struct {
	Import    ProjectImportCmd    `cmd:"" help:"Import a project tree into the workspace"`
	Export    ProjectExportCmd    `cmd:"" help:"Export a project, rendering cached documents to markup"`
	List      ProjectListCmd      `cmd:"" help:"List registered projects"`
	Delete    ProjectDeleteCmd    `cmd:"" help:"Delete a project and its files"`
	Use       ProjectUseCmd       `cmd:"" help:"Select the reference a project reads from"`
	Reconcile ProjectReconcileCmd `cmd:"" help:"Repair metadata against recordings on disk"`
	Status    ProjectStatusCmd    `cmd:"" help:"Show recording coverage per chapter"`
}

// ProjectImportCmd imports a project tree.
type ProjectImportCmd struct {
	Src string `arg:"" help:"Path to the project tree" type:"existingdir"`
}

func (c *ProjectImportCmd) Run(app *appContext) error {
	name, err := app.manager.ImportProject(app.ctx, c.Src)
	if err != nil {
		return err
	}
	fmt.Printf("imported project %q\n", name)
	return nil
}

// ProjectExportCmd exports a project.
type ProjectExportCmd struct {
	Name      string `arg:"" help:"Project name"`
	Dst       string `arg:"" help:"Destination directory" type:"path"`
	Overwrite bool   `help:"Replace an existing export target"`
}

func (c *ProjectExportCmd) Run(app *appContext) error {
	target, err := app.manager.ExportProject(app.ctx, c.Name, c.Dst, c.Overwrite)
	if err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", target)
	return nil
}

// ProjectListCmd lists registered projects.
type ProjectListCmd struct{}

func (c *ProjectListCmd) Run(app *appContext) error {
	reg, err := app.registry.Load()
	if err != nil {
		return err
	}
	if len(reg.Projects) == 0 {
		fmt.Println("no projects")
		return nil
	}
	for _, p := range reg.Projects {
		ref := p.ReferenceResource
		if ref == "" {
			ref = "-"
		}
		fmt.Printf("%s\t%s\treference: %s\n", p.ProjectName, p.ProjectPath, ref)
	}
	return nil
}

// ProjectDeleteCmd deletes a project.
type ProjectDeleteCmd struct {
	Name string `arg:"" help:"Project name"`
}

func (c *ProjectDeleteCmd) Run(app *appContext) error {
	if err := app.manager.DeleteProject(app.ctx, c.Name); err != nil {
		return err
	}
	fmt.Printf("deleted project %q\n", c.Name)
	return nil
}

// ProjectUseCmd selects the reference a project reads from.
type ProjectUseCmd struct {
	Name      string `arg:"" help:"Project name"`
	Reference string `arg:"" optional:"" help:"Reference name (omit to clear)"`
}

func (c *ProjectUseCmd) Run(app *appContext) error {
	if err := app.registry.SetProjectReference(c.Name, c.Reference); err != nil {
		return err
	}
	if c.Reference == "" {
		fmt.Printf("cleared reference for project %q\n", c.Name)
	} else {
		fmt.Printf("project %q now reads from %q\n", c.Name, c.Reference)
	}
	return nil
}

// ProjectReconcileCmd repairs metadata against the recordings on disk.
type ProjectReconcileCmd struct {
	Name string `arg:"" help:"Project name"`
}

func (c *ProjectReconcileCmd) Run(app *appContext) error {
	report, err := app.manager.Reconcile(c.Name)
	if err != nil {
		return err
	}
	fmt.Printf("reconciled %q: %d added, %d dropped\n", c.Name, len(report.Added), len(report.Dropped))
	for _, key := range report.Added {
		fmt.Printf("  + %s\n", key)
	}
	for _, key := range report.Dropped {
		fmt.Printf("  - %s\n", key)
	}
	return nil
}

// ProjectStatusCmd shows recording coverage per chapter of a book.
type ProjectStatusCmd struct {
	Name string `arg:"" help:"Project name"`
	Book string `arg:"" help:"Book code (e.g. MRK)"`
}

func (c *ProjectStatusCmd) Run(app *appContext) error {
	reg, err := app.registry.Load()
	if err != nil {
		return err
	}
	p, ok := reg.FindProject(c.Name)
	if !ok {
		return errors.NewNotFound("project", c.Name)
	}
	meta, err := burrito.Read(p.ProjectPath)
	if err != nil {
		return err
	}
	idx := scope.Build(meta)
	refs := idx.Refs(c.Book)
	fmt.Printf("%s: %d verse recordings\n", c.Book, len(refs))

	table, err := versification.Load(p.ProjectPath)
	if err != nil {
		logging.Debug("no versification table", "project", c.Name, "error", err)
		return nil
	}
	for chapter := 1; chapter <= table.ChapterCount(c.Book); chapter++ {
		complete := idx.HasAudioForEntireChapter(c.Book, chapter, table)
		mark := " "
		if complete {
			mark = "*"
		}
		recorded := 0
		prefix := fmt.Sprintf("%d:", chapter)
		for _, ref := range refs {
			if strings.HasPrefix(ref, prefix) {
				recorded++
			}
		}
		fmt.Printf("  [%s] chapter %d: %d/%d\n", mark, chapter, recorded, table.VerseCount(c.Book, chapter))
	}
	return nil
}

// ReferenceGroup contains reference lifecycle operations.
type ReferenceGroup struct {
	Import ReferenceImportCmd `cmd:"" help:"Import a reference tree into the workspace"`
	List   ReferenceListCmd   `cmd:"" help:"List registered references"`
	Delete ReferenceDeleteCmd `cmd:"" help:"Delete a reference and its files"`
}

// ReferenceImportCmd imports a reference tree.
type ReferenceImportCmd struct {
	Src string `arg:"" help:"Path to the reference tree" type:"existingdir"`
}

func (c *ReferenceImportCmd) Run(app *appContext) error {
	name, err := app.manager.ImportReference(app.ctx, c.Src)
	if err != nil {
		return err
	}
	fmt.Printf("imported reference %q\n", name)
	return nil
}

// ReferenceListCmd lists registered references.
type ReferenceListCmd struct{}

func (c *ReferenceListCmd) Run(app *appContext) error {
	reg, err := app.registry.Load()
	if err != nil {
		return err
	}
	if len(reg.References) == 0 {
		fmt.Println("no references")
		return nil
	}
	for _, r := range reg.References {
		fmt.Printf("%s\t%s\t%s\n", r.ReferenceName, r.ReferencePath, strings.Join(r.ReferenceType, ","))
	}
	return nil
}

// ReferenceDeleteCmd deletes a reference.
type ReferenceDeleteCmd struct {
	Name string `arg:"" help:"Reference name"`
}

func (c *ReferenceDeleteCmd) Run(app *appContext) error {
	if err := app.manager.DeleteReference(c.Name); err != nil {
		return err
	}
	fmt.Printf("deleted reference %q\n", c.Name)
	return nil
}

// RecordGroup contains verse recording operations.
type RecordGroup struct {
	Add    RecordAddCmd    `cmd:"" help:"File a finished recording under its verse"`
	Remove RecordRemoveCmd `cmd:"" help:"Remove a verse recording"`
}

// RecordAddCmd files a finished recording under its verse.
type RecordAddCmd struct {
	Project string `arg:"" help:"Project name"`
	Book    string `arg:"" help:"Book code (e.g. MRK)"`
	Chapter int    `arg:"" help:"Chapter number"`
	Verse   int    `arg:"" help:"Verse number"`
	Wav     string `arg:"" help:"Path to the recorded wav file" type:"existingfile"`
}

func (c *RecordAddCmd) Run(app *appContext) error {
	target, err := app.manager.RecordVerse(c.Project, c.Book, c.Chapter, c.Verse, c.Wav)
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s at %s\n", resolve.Describe(c.Book, c.Chapter, c.Verse), target)
	return nil
}

// RecordRemoveCmd removes a verse recording.
type RecordRemoveCmd struct {
	Project string `arg:"" help:"Project name"`
	Book    string `arg:"" help:"Book code"`
	Chapter int    `arg:"" help:"Chapter number"`
	Verse   int    `arg:"" help:"Verse number"`
}

func (c *RecordRemoveCmd) Run(app *appContext) error {
	if err := app.manager.DeleteRecording(c.Project, c.Book, c.Chapter, c.Verse); err != nil {
		return err
	}
	fmt.Printf("removed recording for %s\n", resolve.Describe(c.Book, c.Chapter, c.Verse))
	return nil
}

// VerseGroup contains verse lookup operations.
type VerseGroup struct {
	Show   VerseShowCmd   `cmd:"" help:"Show reference text for a verse"`
	Resume VerseResumeCmd `cmd:"" help:"Show the last selection for a project"`
}

// VerseShowCmd shows the reference text for a verse and whether the
// project has a recording for it. The selection is remembered.
type VerseShowCmd struct {
	Project string `arg:"" help:"Project name"`
	Book    string `arg:"" help:"Book code"`
	Chapter int    `arg:"" help:"Chapter number"`
	Verse   int    `arg:"" help:"Verse number"`
}

func (c *VerseShowCmd) Run(app *appContext) error {
	reg, err := app.registry.Load()
	if err != nil {
		return err
	}
	p, ok := reg.FindProject(c.Project)
	if !ok {
		return errors.NewNotFound("project", c.Project)
	}

	fmt.Println(resolve.Describe(c.Book, c.Chapter, c.Verse))

	r := resolve.New()
	if p.ReferenceResource == "" {
		fmt.Println("(no reference selected)")
	} else {
		ref, ok := reg.FindReference(p.ReferenceResource)
		if !ok {
			return errors.NewNotFound("reference", p.ReferenceResource)
		}
		fmt.Println(r.ResolveVerseText(ref.ReferencePath, c.Book, c.Chapter, c.Verse))
	}

	if path, ok := r.ResolveVerseAudio(p.ProjectPath, c.Book, c.Chapter, c.Verse); ok {
		fmt.Printf("recorded: %s\n", path)
	} else {
		fmt.Println("not recorded")
	}

	sel := session.Selection{Project: c.Project, Book: c.Book, Chapter: c.Chapter, Verse: c.Verse}
	if err := app.sessions.Save(app.ctx, sel); err != nil {
		logging.Warn("selection not saved", "project", c.Project, "error", err)
	}
	return nil
}

// VerseResumeCmd shows the last selection for a project.
type VerseResumeCmd struct {
	Project string `arg:"" help:"Project name"`
}

func (c *VerseResumeCmd) Run(app *appContext) error {
	sel, err := app.sessions.Load(app.ctx, c.Project)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			fmt.Printf("no saved selection for %q\n", c.Project)
			return nil
		}
		return err
	}
	fmt.Printf("%s (saved %s)\n", resolve.Describe(sel.Book, sel.Chapter, sel.Verse),
		sel.UpdatedAt.Format("2006-01-02 15:04"))
	return nil
}

// SnapshotGroup contains project snapshot archive operations.
type SnapshotGroup struct {
	Pack   SnapshotPackCmd   `cmd:"" help:"Pack a project into a tar.xz snapshot"`
	Unpack SnapshotUnpackCmd `cmd:"" help:"Unpack a snapshot archive into a directory"`
}

// SnapshotPackCmd packs a project into a snapshot archive.
type SnapshotPackCmd struct {
	Name string `arg:"" help:"Project name"`
	Out  string `help:"Archive path (defaults to {name}.tar.xz in the current directory)" type:"path"`
}

func (c *SnapshotPackCmd) Run(app *appContext) error {
	reg, err := app.registry.Load()
	if err != nil {
		return err
	}
	p, ok := reg.FindProject(c.Name)
	if !ok {
		return errors.NewNotFound("project", c.Name)
	}

	out := c.Out
	if out == "" {
		out = c.Name + archive.Extension
	}
	if err := archive.Pack(p.ProjectPath, out); err != nil {
		return err
	}
	fmt.Printf("packed %q into %s\n", c.Name, out)
	return nil
}

// SnapshotUnpackCmd unpacks a snapshot archive.
type SnapshotUnpackCmd struct {
	Archive string `arg:"" help:"Snapshot archive path" type:"existingfile"`
	Dst     string `arg:"" help:"Destination directory" type:"path"`
}

func (c *SnapshotUnpackCmd) Run(app *appContext) error {
	if err := archive.Unpack(c.Archive, c.Dst); err != nil {
		return err
	}
	fmt.Printf("unpacked into %s\n", c.Dst)
	return nil
}

// UserGroup contains user settings operations.
type UserGroup struct {
	Set UserSetCmd `cmd:"" help:"Set the username"`
}

// UserSetCmd sets the username.
type UserSetCmd struct {
	Name string `arg:"" help:"Username"`
}

func (c *UserSetCmd) Run(app *appContext) error {
	if err := app.registry.SetUsername(c.Name); err != nil {
		return err
	}
	fmt.Printf("username set to %q\n", c.Name)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *appContext) error {
	fmt.Printf("scribe %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scribe"),
		kong.Description("Juniper Scribe - scripture recording workspace manager"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	format := logging.FormatText
	if CLI.JSONLog {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)

	app, err := newAppContext(CLI.Base)
	ctx.FatalIfErrorf(err)
	defer app.Close()

	err = ctx.Run(app)
	ctx.FatalIfErrorf(err)
}
