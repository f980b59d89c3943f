package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tollelege/catena/internal/corpus"
)

var (
	sourcesCorpusPath string
	sourcesJSON       bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the works in the corpus",
	Long: `List every source text in the corpus with its author and chunk count.

The listed names are the values accepted by the --sources flag of
'catena search'.

Examples:
  catena sources
  catena sources --json`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().StringVar(&sourcesCorpusPath, "corpus", "", "Path to the corpus NDJSON file (default: $CATENA_CORPUS or corpus.ndjson)")
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "Print the source list as JSON")
}

func runSources(cmd *cobra.Command, args []string) error {
	path := corpusPathOrDefault(sourcesCorpusPath)
	chunks, _, err := corpus.LoadChunks(path)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	store := corpus.NewStore(chunks)
	sources := store.Sources()

	if sourcesJSON {
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(sources) == 0 {
		fmt.Println("No sources found in corpus")
		return nil
	}

	// LipGloss signature purple/pink palette
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		nameColor    = lipgloss.Color("#BD93F9") // Purple
		authorColor  = lipgloss.Color("#E9E9F4") // Light purple/white
		numberColor  = lipgloss.Color("#FF79C6") // Pink
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		summaryColor = lipgloss.Color("#8BE9FD") // Cyan accent
	)

	// Column widths
	const (
		nameWidth   = 40
		authorWidth = 24
		chunkWidth  = 10
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	headers := []string{
		headerStyle.Width(nameWidth).Render("SOURCE"),
		headerStyle.Width(authorWidth).Render("AUTHOR"),
		headerStyle.Width(chunkWidth).Render("CHUNKS"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", nameWidth),
		strings.Repeat("─", authorWidth),
		strings.Repeat("─", chunkWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	nameStyle := lipgloss.NewStyle().
		Foreground(nameColor).
		Padding(0, 1).
		Width(nameWidth)

	authorStyle := lipgloss.NewStyle().
		Foreground(authorColor).
		Padding(0, 1).
		Width(authorWidth)

	chunkStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(chunkWidth).
		Align(lipgloss.Right)

	totalChunks := 0
	for _, src := range sources {
		totalChunks += src.ChunkCount
		cells := []string{
			nameStyle.Render(truncateCell(src.Name, nameWidth-2)),
			authorStyle.Render(truncateCell(src.Author, authorWidth-2)),
			chunkStyle.Render(fmt.Sprintf("%d", src.ChunkCount)),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	fmt.Println()
	summaryStyle := lipgloss.NewStyle().
		Foreground(summaryColor).
		Italic(true)
	fmt.Println(summaryStyle.Render(fmt.Sprintf("Total: %d sources, %d chunks", len(sources), totalChunks)))

	return nil
}
