package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPackUnpack_RoundTrip(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"metadata.json":        `{"format":"scripture burrito"}`,
		"ingredients/GEN.json": `{"book":{"bookCode":"GEN"}}`,
		"audio/ingredients/GEN/1/1_1_1_default.wav": "RIFF....",
	}
	for rel, content := range files {
		path := filepath.Join(src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	archivePath := filepath.Join(t.TempDir(), "snapshot"+Extension)
	if err := Pack(src, archivePath); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "restored")
	if err := Unpack(archivePath, dest); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	for rel, want := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("%s missing after unpack: %v", rel, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s content mismatch: got %q, want %q", rel, got, want)
		}
	}
}

func TestPack_SourceMustBeDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Pack(file, filepath.Join(dir, "out"+Extension)); err == nil {
		t.Error("packing a plain file should fail")
	}
	if err := Pack(filepath.Join(dir, "absent"), filepath.Join(dir, "out"+Extension)); err == nil {
		t.Error("packing a missing directory should fail")
	}
}

func TestUnpack_MissingArchive(t *testing.T) {
	dir := t.TempDir()
	if err := Unpack(filepath.Join(dir, "absent"+Extension), filepath.Join(dir, "out")); err == nil {
		t.Error("unpacking a missing archive should fail")
	}
}

func TestPackUnpack_EmptyDirsPreserved(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "ingredients"), 0o755); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(t.TempDir(), "empty"+Extension)
	if err := Pack(src, archivePath); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "restored")
	if err := Unpack(archivePath, dest); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	info, err := os.Stat(filepath.Join(dest, "ingredients"))
	if err != nil || !info.IsDir() {
		t.Errorf("empty directory not restored: %v", err)
	}
}
