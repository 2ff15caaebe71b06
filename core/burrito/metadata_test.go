package burrito

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
)

func writeMinimalMetadata(t *testing.T, dir string) {
	t.Helper()
	md := &Metadata{
		Format:         FormatSentinel,
		Identification: Identification{Name: map[string]string{"en": "Test Project"}},
		Languages:      []Language{{Tag: "en", Name: map[string]string{"en": "English"}}},
		Type: TypeInfo{FlavorType: FlavorType{
			CurrentScope: map[string]json.RawMessage{"GEN": json.RawMessage(`{}`)},
		}},
		Ingredients: map[string]*Ingredient{},
	}
	data, err := md.ToJSON()
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFileName), data, 0644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
}

func TestRead_RootLayout(t *testing.T) {
	dir := t.TempDir()
	writeMinimalMetadata(t, dir)

	m, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if m.DisplayName() != "Test Project" {
		t.Errorf("display name: got %q", m.DisplayName())
	}
	if got := m.Books(); len(got) != 1 || got[0] != "GEN" {
		t.Errorf("books: got %v", got)
	}
}

func TestRead_LegacyTextLayerLayout(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, TextLayerDir)
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeMinimalMetadata(t, sub)

	m, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed for legacy layout: %v", err)
	}
	if m.DisplayName() != "Test Project" {
		t.Errorf("display name: got %q", m.DisplayName())
	}

	_, contentRoot, err := Locate(dir)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if contentRoot != sub {
		t.Errorf("content root: got %q, want %q", contentRoot, sub)
	}
}

func TestRead_NotFound(t *testing.T) {
	_, err := Read(t.TempDir())
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MetadataFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Read(dir)
	var parseErr *errors.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	m := &Metadata{
		Format:         FormatSentinel,
		Identification: Identification{Name: map[string]string{"en": "X"}},
	}
	if err := m.Validate(); err != nil {
		t.Errorf("valid metadata rejected: %v", err)
	}

	m.Format = "something else"
	if err := m.Validate(); err == nil {
		t.Error("wrong format sentinel accepted")
	}

	m.Format = FormatSentinel
	m.Identification.Name = nil
	if err := m.Validate(); err == nil {
		t.Error("missing display name accepted")
	}
}

func TestIngredientKind(t *testing.T) {
	cases := []struct {
		mime string
		want IngredientKind
	}{
		{MIMEAudioWAV, KindAudio},
		{MIMETextUSFM, KindText},
		{"application/json", KindOther},
	}
	for _, tc := range cases {
		ing := &Ingredient{MIMEType: tc.mime}
		if got := ing.Kind(); got != tc.want {
			t.Errorf("Kind(%s): got %v, want %v", tc.mime, got, tc.want)
		}
	}
}

func TestWrite_PreservesLegacyLocation(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, TextLayerDir)
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeMinimalMetadata(t, sub)

	m, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	m.Identification.Name["en"] = "Renamed"
	if err := Write(dir, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// The rewrite must land where the document was found, not at the root.
	if _, err := os.Stat(filepath.Join(dir, MetadataFileName)); !os.IsNotExist(err) {
		t.Error("Write created a root metadata.json for a legacy layout")
	}
	m2, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m2.DisplayName() != "Renamed" {
		t.Errorf("rewrite lost the change: %q", m2.DisplayName())
	}
}
