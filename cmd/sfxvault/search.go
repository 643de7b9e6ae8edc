package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/search"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a lexical query against the registry (spec §4.5/§4.6, C5/C6)",
	Long: `Parses a free-form query string (boolean operators, field
expressions, unit-typed comparisons, globs, and quoted/regex terms) and
executes it against the registry, ranking results by the relevance
function described in spec §4.6.

Examples:
  sfxvault search 'duration:>5m AND format:wav NOT stereo'
  sfxvault search '-foot* AND format:wav'
  sfxvault search 'size:<500kb tags:footstep'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int("limit", 20, "maximum results to return")
	searchCmd.Flags().Int("offset", 0, "result offset for pagination")
}

func runSearch(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("db")
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	q := search.Parse(args[0])
	engine := search.NewEngine(db)

	result, err := engine.Search(q, search.Filters{}, limit, offset)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	util.InfoLog("%d matches (showing %d) in %v", result.Total, len(result.Records), result.ExecutionTime.Round(time.Millisecond))
	for _, r := range result.Records {
		tags := ""
		if len(r.Tags) > 0 {
			tags = " [" + strings.Join(r.Tags, ", ") + "]"
		}
		fmt.Printf("%8.3f  %-12s %6.1fs  %s%s\n", result.Scores[r.ID], r.Format, r.DurationS, r.Path, tags)
	}

	return nil
}
