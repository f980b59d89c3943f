package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-git/go-git/v6"
	"github.com/spf13/cobra"

	ingestgh "github.com/tollelege/catena/internal/ingest/github"
	"github.com/tollelege/catena/internal/ingest/vault"
)

var (
	pullRepo    string
	pullRelease string
	pullTag     string
	pullAsset   string
	pullOut     string
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch corpus files from a vault repository or release",
	Long: `Fetch corpus NDJSON files from where the annotation pipeline publishes
them: either the vault Git repository itself, or a GitHub release built
from it.

With --repo, the vault is cloned (or opened, for a local path) and every
.ndjson file at HEAD is extracted. With --release, the asset is
downloaded from the latest release, or from the release named by --tag.

Set GITHUB_TOKEN to raise the API rate limit for release downloads.

Examples:
  catena pull --repo https://github.com/tollelege/catena-vault
  catena pull --repo ../catena-vault --out data
  catena pull --release tollelege/catena-vault --asset corpus.ndjson
  catena pull --release tollelege/catena-vault --tag v2025.06`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
	pullCmd.Flags().StringVar(&pullRepo, "repo", "", "Vault repository to extract corpus files from (URL or local path)")
	pullCmd.Flags().StringVar(&pullRelease, "release", "", "GitHub repository to download a release asset from (owner/repo or URL)")
	pullCmd.Flags().StringVar(&pullTag, "tag", "", "Release tag to download from (default: latest release)")
	pullCmd.Flags().StringVar(&pullAsset, "asset", "", "Release asset name to download (default: first .ndjson asset)")
	pullCmd.Flags().StringVar(&pullOut, "out", ".", "Directory to write corpus files into")
}

func runPull(cmd *cobra.Command, args []string) error {
	if (pullRepo == "") == (pullRelease == "") {
		return fmt.Errorf("exactly one of --repo or --release is required")
	}

	if err := os.MkdirAll(pullOut, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if pullRepo != "" {
		return pullFromVault(pullRepo, pullOut)
	}
	return pullFromRelease(context.Background(), pullRelease, pullTag, pullAsset, pullOut)
}

func pullFromVault(repoRef, outDir string) error {
	var (
		contextColor = lipgloss.Color("#6272A4") // Muted purple
		successColor = lipgloss.Color("#50FA7B") // Green
	)
	contextStyle := lipgloss.NewStyle().Foreground(contextColor).Italic(true)
	successStyle := lipgloss.NewStyle().Foreground(successColor)

	repo, err := openVault(repoRef, contextStyle)
	if err != nil {
		return err
	}

	files, err := vault.ListFiles(repo, ".ndjson")
	if err != nil {
		return fmt.Errorf("failed to list vault files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .ndjson files found in vault %s", repoRef)
	}

	snapshot, err := vault.Snapshot(repo, files...)
	if err != nil {
		return fmt.Errorf("failed to extract corpus files: %w", err)
	}

	for _, f := range snapshot {
		dest := filepath.Join(outDir, filepath.Base(f.Path))
		if err := os.WriteFile(dest, f.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s (%d bytes)", dest, len(f.Data))))
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Extracted %d corpus files to %s", len(snapshot), outDir)))
	return nil
}

func openVault(repoRef string, contextStyle lipgloss.Style) (*git.Repository, error) {
	if _, statErr := os.Stat(repoRef); statErr == nil {
		fmt.Println(contextStyle.Render(fmt.Sprintf("→ Opening local vault %s...", repoRef)))
		return vault.Open(repoRef)
	}
	fmt.Println(contextStyle.Render(fmt.Sprintf("→ Cloning vault %s...", repoRef)))
	return vault.Clone(repoRef)
}

func pullFromRelease(ctx context.Context, repoRef, tag, assetName, outDir string) error {
	var (
		contextColor = lipgloss.Color("#6272A4") // Muted purple
		successColor = lipgloss.Color("#50FA7B") // Green
	)
	contextStyle := lipgloss.NewStyle().Foreground(contextColor).Italic(true)
	successStyle := lipgloss.NewStyle().Foreground(successColor)

	owner, repo, err := ingestgh.ParseRepoURL(repoRef)
	if err != nil {
		return err
	}

	client := ingestgh.NewClient(os.Getenv("GITHUB_TOKEN"))

	var release *ingestgh.Release
	if tag != "" {
		fmt.Println(contextStyle.Render(fmt.Sprintf("→ Fetching release %s of %s/%s...", tag, owner, repo)))
		release, err = ingestgh.ReleaseByTag(ctx, client, owner, repo, tag)
	} else {
		fmt.Println(contextStyle.Render(fmt.Sprintf("→ Fetching latest release of %s/%s...", owner, repo)))
		release, err = ingestgh.LatestRelease(ctx, client, owner, repo)
	}
	if err != nil {
		return err
	}

	asset, err := pickAsset(release, assetName)
	if err != nil {
		return err
	}

	fmt.Println(contextStyle.Render(fmt.Sprintf("→ Downloading %s (%d bytes)...", asset.Name, asset.Size)))
	body, err := ingestgh.DownloadAsset(ctx, client, owner, repo, asset.ID)
	if err != nil {
		return err
	}
	defer body.Close()

	dest := filepath.Join(outDir, asset.Name)
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	written, err := io.Copy(out, body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s (%d bytes, release %s)", dest, written, release.TagName)))
	return nil
}

// pickAsset selects the requested asset, or the first .ndjson asset
// when no name is given.
func pickAsset(release *ingestgh.Release, name string) (*ingestgh.Asset, error) {
	if name != "" {
		return ingestgh.FindAsset(release, name)
	}
	for i := range release.Assets {
		if strings.HasSuffix(release.Assets[i].Name, ".ndjson") {
			return &release.Assets[i], nil
		}
	}

	available := make([]string, 0, len(release.Assets))
	for _, a := range release.Assets {
		available = append(available, a.Name)
	}
	return nil, fmt.Errorf("no .ndjson asset in release %s (available: %s), use --asset to pick one",
		release.TagName, strings.Join(available, ", "))
}
