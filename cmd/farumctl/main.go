package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Southclaws/opt"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-engine/internal/app/classify"
	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "farumctl",
		Short:         "farumctl - inspect Farum's classifiers and progression rules",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newClassifyCmd(), newLevelCmd(), newCatalogCmd())
	return root
}

type classifyOutput struct {
	Sentiment domain.Sentiment        `json:"sentiment"`
	Emotion   domain.EmotionAnalysis  `json:"emotion"`
	Crisis    domain.CrisisAssessment `json:"crisis"`
	Topics    []string                `json:"topics"`
}

func newClassifyCmd() *cobra.Command {
	var score, magnitude float64

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Run emotion analysis and crisis assessment on a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			// an explicit --score stands in for the external sentiment collaborator
			given := opt.NewEmpty[domain.Sentiment]()
			s := classify.LocalSentiment(text)
			if cmd.Flags().Changed("score") {
				if score < -1 || score > 1 {
					return fmt.Errorf("--score must be within [-1, 1]")
				}
				s = domain.Sentiment{Score: score, Magnitude: magnitude}
				given = opt.New(s)
			}

			topics := classify.ExtractTopics(text)
			if topics == nil {
				topics = []string{}
			}

			return writeJSON(cmd.OutOrStdout(), classifyOutput{
				Sentiment: s,
				Emotion:   classify.AnalyzeEmotion(text, s),
				Crisis:    classify.AssessCrisis(text, given),
				Topics:    topics,
			})
		},
	}

	cmd.Flags().Float64Var(&score, "score", 0, "sentiment score in [-1, 1] (default: local heuristic)")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 0, "sentiment magnitude, used with --score")
	return cmd
}

func newLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "level <xp>",
		Short: "Show the level progress for a total XP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xp, err := strconv.Atoi(args[0])
			if err != nil || xp < 0 {
				return fmt.Errorf("xp must be a non-negative integer, got %q", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), progression.GetLevelProgress(xp))
		},
	}
}

func newCatalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List activities and achievements",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := progression.LoadCatalog(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Activities:")
			for _, t := range sortedActivities(catalog) {
				fmt.Fprintf(out, "  %-20s %4d xp\n", t, catalog.Activities[t])
			}
			fmt.Fprintln(out, "Achievements:")
			for _, a := range catalog.Achievements {
				fmt.Fprintf(out, "  %-20s %4d xp  %s\n", a.ID, a.XPReward, a.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file (default: embedded catalog)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
