package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	return NewStore(base), base
}

func TestLoad_MissingDocument(t *testing.T) {
	s, _ := newTestStore(t)

	reg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Username != "" || len(reg.Projects) != 0 || len(reg.References) != 0 {
		t.Errorf("missing document should load as empty registry: %+v", reg)
	}
}

func TestLoad_Malformed(t *testing.T) {
	s, base := newTestStore(t)
	if err := os.WriteFile(filepath.Join(base, FileName), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(); err == nil {
		t.Error("malformed document should fail to load")
	}
}

func TestSetUsername(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SetUsername(""); err == nil {
		t.Error("empty username should be rejected")
	}
	if err := s.SetUsername("translator"); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Username != "translator" {
		t.Errorf("Username = %q", reg.Username)
	}
}

func TestAddProject_Duplicate(t *testing.T) {
	s, base := newTestStore(t)

	p := Project{ProjectName: "mark", ProjectPath: filepath.Join(base, "projects", "mark")}
	if err := s.AddProject(p); err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	err := s.AddProject(p)
	if err == nil {
		t.Fatal("duplicate project should be rejected")
	}
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("duplicate error = %v; want ErrAlreadyExists", err)
	}
}

func TestRemoveProject_CascadesToDisk(t *testing.T) {
	s, base := newTestStore(t)

	rootPath := filepath.Join(base, "projects", "mark")
	if err := os.MkdirAll(filepath.Join(rootPath, "ingredients"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProject(Project{ProjectName: "mark", ProjectPath: rootPath}); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveProject("mark"); err != nil {
		t.Fatalf("RemoveProject: %v", err)
	}

	if _, err := os.Stat(rootPath); !os.IsNotExist(err) {
		t.Error("project tree should be deleted")
	}
	reg, _ := s.Load()
	if len(reg.Projects) != 0 {
		t.Errorf("project entry should be gone: %+v", reg.Projects)
	}

	if err := s.RemoveProject("mark"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second remove = %v; want ErrNotFound", err)
	}
}

func TestAddReference_TypeValidation(t *testing.T) {
	s, base := newTestStore(t)

	bad := Reference{
		ReferenceName: "niv",
		ReferencePath: filepath.Join(base, "references", "niv"),
		ReferenceType: []string{"Video"},
	}
	if err := s.AddReference(bad); err == nil {
		t.Error("unknown reference type should be rejected")
	}

	good := bad
	good.ReferenceType = []string{TypeBible, TypeAudio}
	if err := s.AddReference(good); err != nil {
		t.Errorf("AddReference: %v", err)
	}
}

func TestRemoveReference_ClearsProjectSelection(t *testing.T) {
	s, base := newTestStore(t)

	refPath := filepath.Join(base, "references", "niv")
	if err := os.MkdirAll(refPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.AddReference(Reference{
		ReferenceName: "niv",
		ReferencePath: refPath,
		ReferenceType: []string{TypeBible},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProject(Project{ProjectName: "mark", ProjectPath: filepath.Join(base, "projects", "mark")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectReference("mark", "niv"); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveReference("niv"); err != nil {
		t.Fatalf("RemoveReference: %v", err)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	// The project survives with its selection cleared.
	p, ok := reg.FindProject("mark")
	if !ok {
		t.Fatal("project should survive reference removal")
	}
	if p.ReferenceResource != "" {
		t.Errorf("ReferenceResource = %q; want empty", p.ReferenceResource)
	}
	if _, ok := reg.FindReference("niv"); ok {
		t.Error("reference entry should be gone")
	}
	if _, err := os.Stat(refPath); !os.IsNotExist(err) {
		t.Error("reference tree should be deleted")
	}
}

func TestSetProjectReference_Validation(t *testing.T) {
	s, base := newTestStore(t)

	if err := s.SetProjectReference("mark", "niv"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown project = %v; want ErrNotFound", err)
	}

	if err := s.AddProject(Project{ProjectName: "mark", ProjectPath: filepath.Join(base, "p")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectReference("mark", "niv"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown reference = %v; want ErrNotFound", err)
	}

	if err := s.AddReference(Reference{
		ReferenceName: "niv",
		ReferencePath: filepath.Join(base, "r"),
		ReferenceType: []string{TypeBible},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectReference("mark", "niv"); err != nil {
		t.Fatalf("SetProjectReference: %v", err)
	}

	// Empty name clears the selection.
	if err := s.SetProjectReference("mark", ""); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	reg, _ := s.Load()
	if p, _ := reg.FindProject("mark"); p.ReferenceResource != "" {
		t.Errorf("selection not cleared: %q", p.ReferenceResource)
	}
}

func TestUpdate_RoundTripsUnrelatedFields(t *testing.T) {
	s, base := newTestStore(t)

	if err := s.SetUsername("translator"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProject(Project{ProjectName: "mark", ProjectPath: filepath.Join(base, "p")}); err != nil {
		t.Fatal(err)
	}

	reg, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Username != "translator" {
		t.Errorf("Username lost across updates: %q", reg.Username)
	}
	if len(reg.Projects) != 1 {
		t.Errorf("Projects = %+v", reg.Projects)
	}
}
