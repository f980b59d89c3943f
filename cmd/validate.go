package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tollelege/catena/internal/corpus"
)

var validateCorpusPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check corpus annotations for invariant violations",
	Long: `Load the corpus and check every chunk's annotations for internal
consistency: each namespaced topic, term, discourse tag, and named
entity must agree with the chunk's concept list.

Violations are reported, never repaired. A non-zero exit signals at
least one violation, so the command can gate an annotation pipeline.

Examples:
  catena validate
  catena validate --corpus data/corpus.ndjson`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateCorpusPath, "corpus", "", "Path to the corpus NDJSON file (default: $CATENA_CORPUS or corpus.ndjson)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink
		idColor      = lipgloss.Color("#BD93F9") // Purple
		fieldColor   = lipgloss.Color("#FF79C6") // Pink
		reasonColor  = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		successColor = lipgloss.Color("#50FA7B") // Green
	)

	successStyle := lipgloss.NewStyle().Foreground(successColor)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	mutedStyle := lipgloss.NewStyle().Foreground(borderColor).Italic(true)

	path := corpusPathOrDefault(validateCorpusPath)
	chunks, stats, err := corpus.LoadChunks(path)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	fmt.Println(mutedStyle.Render(fmt.Sprintf("Loaded %d chunks from %s (%d malformed, %d rejected)",
		stats.Loaded, path, stats.Malformed, stats.Rejected)))

	violations := corpus.ValidateChunks(chunks)
	if len(violations) == 0 {
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ All %d chunks pass annotation validation", len(chunks))))
		return nil
	}

	// Column widths
	const (
		idWidth     = 24
		fieldWidth  = 16
		reasonWidth = 56
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	headers := []string{
		headerStyle.Width(idWidth).Render("CHUNK"),
		headerStyle.Width(fieldWidth).Render("FIELD"),
		headerStyle.Width(reasonWidth).Render("REASON"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", idWidth),
		strings.Repeat("─", fieldWidth),
		strings.Repeat("─", reasonWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	idStyle := lipgloss.NewStyle().
		Foreground(idColor).
		Padding(0, 1).
		Width(idWidth)

	fieldStyle := lipgloss.NewStyle().
		Foreground(fieldColor).
		Padding(0, 1).
		Width(fieldWidth)

	reasonStyle := lipgloss.NewStyle().
		Foreground(reasonColor).
		Padding(0, 1).
		Width(reasonWidth)

	for _, v := range violations {
		reason := v.Reason
		if v.Value != "" {
			reason = fmt.Sprintf("%s: %s", v.Value, v.Reason)
		}
		cells := []string{
			idStyle.Render(truncateCell(v.ChunkID, idWidth-2)),
			fieldStyle.Render(v.Field),
			reasonStyle.Render(truncateCell(reason, reasonWidth-2)),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	fmt.Println()
	return fmt.Errorf("%d annotation violations found", len(violations))
}
