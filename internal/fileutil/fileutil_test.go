package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHashFileMatchesHashBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if got != HashBytes([]byte("hello")) || len(got) != 16 {
		t.Fatalf("unexpected hash %q", got)
	}
}

func TestWriteIfMissingKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	written, err := WriteIfMissing(path, []byte("one"), 0644)
	if err != nil || !written {
		t.Fatalf("expected first write, got %v (%v)", written, err)
	}
	written, err = WriteIfMissing(path, []byte("two"), 0644)
	if err != nil || written {
		t.Fatalf("expected second write to be skipped, got %v (%v)", written, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "one" {
		t.Fatalf("expected original content, got %q", data)
	}
}

func TestStringHelpers(t *testing.T) {
	if got := DedupeStrings([]string{"b", "a", "b"}); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected dedupe result %v", got)
	}
	if got := MapKeysSorted(ToSet([]string{"z", "a"})); !reflect.DeepEqual(got, []string{"a", "z"}) {
		t.Fatalf("unexpected sorted keys %v", got)
	}
	if EnsureTrailingNewline("x") != "x\n" || EnsureTrailingNewline("") != "" {
		t.Fatalf("unexpected trailing newline handling")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]string{"a": "<b>"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if buf.String() != "{\n  \"a\": \"<b>\"\n}\n" {
		t.Fatalf("unexpected json %q", buf.String())
	}
}
