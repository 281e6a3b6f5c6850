package ai

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLabels_DefaultCoco(t *testing.T) {
	labels, err := LoadLabels("")
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	if len(labels) != 80 {
		t.Fatalf("Expected 80 COCO labels, got %d", len(labels))
	}
	if labels[0] != "person" || labels[79] != "toothbrush" {
		t.Errorf("Unexpected label order: %s ... %s", labels[0], labels[79])
	}

	labels[0] = "changed"
	if CocoLabels[0] != "person" {
		t.Error("LoadLabels must return a copy")
	}
}

func TestLoadLabels_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	os.WriteFile(path, []byte("helmet\n\n  vest  \nboots\n"), 0644)

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}

	expected := []string{"helmet", "vest", "boots"}
	if len(labels) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, labels)
	}
	for i := range expected {
		if labels[i] != expected[i] {
			t.Errorf("Label %d: expected %s, got %s", i, expected[i], labels[i])
		}
	}
}

func TestLoadLabels_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, []byte("\n\n"), 0644)

	if _, err := LoadLabels(empty); err == nil {
		t.Error("Expected error for empty labels file")
	}
	if _, err := LoadLabels(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing labels file")
	}
}

func TestLabel(t *testing.T) {
	labels := []string{"cat", "dog"}

	tests := []struct {
		id       int
		expected string
	}{
		{0, "cat"},
		{1, "dog"},
		{2, "class_2"},
		{-1, "class_-1"},
	}

	for _, tt := range tests {
		if got := Label(labels, tt.id); got != tt.expected {
			t.Errorf("Label(%d) = %s, expected %s", tt.id, got, tt.expected)
		}
	}
}
