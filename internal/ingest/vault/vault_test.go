package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

const fixtureChunks = `{"id":"aug-conf-1-1","text":"Great are you, O Lord.","source":"Confessions"}
{"id":"aug-conf-1-2","text":"Our heart is restless.","source":"Confessions"}
`

// initVaultFixture builds a throwaway vault repository on disk.
func initVaultFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init fixture repository: %v", err)
	}

	files := map[string]string{
		"corpus/chunks.ndjson": fixtureChunks,
		"corpus/concepts.json": `{"concepts":["Rest","Grace"]}`,
		"README.md":            "# Corpus vault\n",
	}
	for path, content := range files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create fixture dir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write fixture file: %v", err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}
	if _, err := wt.Add("."); err != nil {
		t.Fatalf("Failed to stage fixture files: %v", err)
	}
	_, err = wt.Commit("publish corpus", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Annotator",
			Email: "annotator@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit fixture: %v", err)
	}

	return dir
}

func TestOpen(t *testing.T) {
	dir := initVaultFixture(t)

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open vault: %v", err)
	}
	if repo == nil {
		t.Fatal("Repository is nil")
	}
}

func TestOpen_NotARepository(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("Expected error opening a plain directory")
	}
}

func TestSnapshot(t *testing.T) {
	repo, err := Open(initVaultFixture(t))
	if err != nil {
		t.Fatalf("Failed to open vault: %v", err)
	}

	files, err := Snapshot(repo, "corpus/chunks.ndjson", "corpus/concepts.json")
	if err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].Path != "corpus/chunks.ndjson" {
		t.Errorf("Expected requested order preserved, got %s first", files[0].Path)
	}
	if string(files[0].Data) != fixtureChunks {
		t.Errorf("Chunk data mismatch:\n%s", files[0].Data)
	}
	if !strings.Contains(string(files[1].Data), "Rest") {
		t.Errorf("Concept data mismatch:\n%s", files[1].Data)
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	repo, err := Open(initVaultFixture(t))
	if err != nil {
		t.Fatalf("Failed to open vault: %v", err)
	}

	_, err = Snapshot(repo, "corpus/chunks.ndjson", "corpus/missing.ndjson")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got: %v", err)
	}
}

func TestListFiles(t *testing.T) {
	repo, err := Open(initVaultFixture(t))
	if err != nil {
		t.Fatalf("Failed to open vault: %v", err)
	}

	t.Run("All files", func(t *testing.T) {
		paths, err := ListFiles(repo, "")
		if err != nil {
			t.Fatalf("Failed to list files: %v", err)
		}
		if len(paths) != 3 {
			t.Fatalf("Expected 3 files, got %d: %v", len(paths), paths)
		}
		// Sorted output
		if paths[0] != "README.md" {
			t.Errorf("Expected sorted paths, got %v", paths)
		}
	})

	t.Run("Extension filter", func(t *testing.T) {
		paths, err := ListFiles(repo, ".ndjson")
		if err != nil {
			t.Fatalf("Failed to list files: %v", err)
		}
		if len(paths) != 1 || paths[0] != "corpus/chunks.ndjson" {
			t.Errorf("Expected only the NDJSON file, got %v", paths)
		}
	})
}

func TestClone(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping network test")
	}

	repo, err := Clone("https://github.com/octocat/Hello-World")
	if err != nil {
		t.Fatalf("Failed to clone repository: %v", err)
	}

	paths, err := ListFiles(repo, "")
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(paths) == 0 {
		t.Error("Expected files in cloned repository")
	}
	t.Logf("✓ Cloned repository with %d files", len(paths))
}
