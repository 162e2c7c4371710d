package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ref, err := s.Save("photo.PNG", strings.NewReader("fake-image-bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !strings.HasPrefix(ref, URLPrefix+"/") {
		t.Fatalf("ref %q should start with %s/", ref, URLPrefix)
	}
	if !strings.HasSuffix(ref, ".png") {
		t.Errorf("extension should be lowercased, got %q", ref)
	}

	name := strings.TrimPrefix(ref, URLPrefix+"/")
	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(data) != "fake-image-bytes" {
		t.Errorf("stored content mismatch")
	}

	if err := s.Delete(ref); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), name)); !os.IsNotExist(err) {
		t.Errorf("file should be gone after Delete")
	}
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		ref, err := s.Save("a.pdf", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if seen[ref] {
			t.Fatalf("duplicate ref generated: %s", ref)
		}
		seen[ref] = true
	}
}

func TestDeleteRejectsForeignRefs(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, ref := range []string{
		"/etc/passwd",
		URLPrefix + "/../escape.txt",
		URLPrefix + "/",
		"plain-name.png",
	} {
		if err := s.Delete(ref); err == nil {
			t.Errorf("Delete(%q) should have been rejected", ref)
		}
	}
}
