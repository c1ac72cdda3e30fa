package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "results")

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if info, err := os.Stat(tempDir); err != nil || !info.IsDir() {
		t.Fatal("Expected output directory to be created")
	}
	if len(manager.Written()) != 0 {
		t.Error("Expected no artifacts initially")
	}
	if manager.Exists("report.txt") {
		t.Error("Expected Exists to return false for missing file")
	}

	testData := []byte("raw bytes")
	if err := manager.Save(bytes.NewReader(testData), "raw.bin"); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(tempDir, "raw.bin"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if err := manager.SaveText("report.txt", "line one\n"); err != nil {
		t.Fatalf("Failed to save text: %v", err)
	}
	if !manager.Exists("report.txt") {
		t.Error("Expected report.txt to exist")
	}

	if err := manager.SaveJSON("results.json", map[string]interface{}{"total_posts": 0, "caption": "<b>&"}); err != nil {
		t.Fatalf("Failed to save JSON: %v", err)
	}
	raw, err := os.ReadFile(manager.Path("results.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte("<b>&")) {
		t.Error("Expected HTML characters to be written unescaped")
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Saved JSON is invalid: %v", err)
	}

	written := manager.Written()
	if len(written) != 3 || written[0] != "raw.bin" || written[2] != "results.json" {
		t.Errorf("Unexpected written list: %v", written)
	}

	if _, err := os.Stat(manager.Path("report.txt") + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should be cleaned up")
	}
}

func TestManagerOverwrite(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.SaveText("report.txt", "first"); err != nil {
		t.Fatal(err)
	}
	if err := manager.SaveText("report.txt", "second"); err != nil {
		t.Fatal(err)
	}

	content, _ := os.ReadFile(manager.Path("report.txt"))
	if string(content) != "second" {
		t.Errorf("Expected overwritten content, got %q", content)
	}
}

func TestManagerRejectsPaths(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"", "../escape.txt", `dir\file.txt`} {
		if err := manager.SaveText(name, "x"); err == nil {
			t.Errorf("Expected error for name %q", name)
		}
	}
}

func TestGetOutputDir(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if manager.GetOutputDir() != tempDir {
		t.Errorf("Expected %s, got %s", tempDir, manager.GetOutputDir())
	}
}
