// Package vault fetches corpus files out of the git repository they
// are published in. The vault holds the annotated chunk NDJSON and its
// companion indexes; this package extracts them from a checkout or a
// clone without needing the annotation tooling installed.
package vault

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrFileNotFound = errors.New("file not found in vault")
)

// File is one file extracted from the vault worktree.
type File struct {
	Path string
	Data []byte
}

// Open opens a local vault checkout.
func Open(path string) (*git.Repository, error) {
	return git.PlainOpen(path)
}

// Clone clones the vault repository to memory.
func Clone(url string) (*git.Repository, error) {
	return git.Clone(memory.NewStorage(), nil, &git.CloneOptions{
		URL: url,
	})
}

// headTree resolves the tree at the repository HEAD.
func headTree(repo *git.Repository) (*object.Tree, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return tree, nil
}

// Snapshot extracts the named files from the repository HEAD. Paths are
// repository-relative. The result keeps the requested order; a missing
// path fails the whole snapshot rather than returning a partial corpus.
func Snapshot(repo *git.Repository, paths ...string) ([]File, error) {
	tree, err := headTree(repo)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := tree.File(p)
		if err != nil {
			if errors.Is(err, object.ErrFileNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
			}
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}

		reader, err := f.Reader()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}

		files = append(files, File{Path: p, Data: data})
	}

	return files, nil
}

// ListFiles returns the paths of all files at HEAD, sorted. With a
// non-empty ext (e.g. ".ndjson") only matching files are returned.
func ListFiles(repo *git.Repository, ext string) ([]string, error) {
	tree, err := headTree(repo)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if ext == "" || strings.HasSuffix(f.Name, ext) {
			paths = append(paths, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}
