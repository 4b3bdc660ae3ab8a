package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
	"github.com/pavelanni/studybuddy/internal/study"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show quiz performance statistics",
		RunE:  runStats,
	}
	addDBFlag(cmd)
	addLogFlags(cmd)
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent quiz attempts, newest first",
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "n", store.DefaultHistoryLimit, "Number of attempts to list")
	addDBFlag(cmd)
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz history and statistics as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.IntP("limit", "n", 0, "Number of attempts to include (0 = all)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addDBFlag(cmd)
	addLogFlags(cmd)
	return cmd
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	v := viperForCmd(cmd)
	setupLogging(v)
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if stats.TotalQuizzes == 0 {
		fmt.Fprintln(out, "No quizzes taken yet.")
		return nil
	}
	byDifficulty, err := db.StatsByDifficulty()
	if err != nil {
		return fmt.Errorf("stats by difficulty: %w", err)
	}
	dist, err := db.ScoreDistribution()
	if err != nil {
		return fmt.Errorf("score distribution: %w", err)
	}
	history, err := db.History(0)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return printStats(out, stats, byDifficulty, dist, study.Analyze(history, stats, byDifficulty, time.Now()))
}

func printStats(out io.Writer, stats model.PerformanceStats, byDifficulty []model.DifficultyStats, dist []model.ScoreBucket, in study.Insights) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total quizzes\t%d\n", stats.TotalQuizzes)
	fmt.Fprintf(tw, "Average score\t%.1f%%\n", stats.AverageScore)
	fmt.Fprintf(tw, "Best score\t%.1f%%\n", stats.BestScore)
	fmt.Fprintf(tw, "Lowest score\t%.1f%%\n", stats.LowestScore)
	fmt.Fprintf(tw, "Accuracy\t%d/%d (%.1f%%)\n", in.QuestionsCorrect, in.QuestionsTotal, in.Accuracy)
	if in.Trend != study.TrendUnknown {
		fmt.Fprintf(tw, "Trend\t%s (last 3 average %.1f%%)\n", in.Trend, in.RecentAverage)
	}
	fmt.Fprintf(tw, "Last 7 days\t%d\n", in.LastWeekCount)

	fmt.Fprintln(tw, "\nDifficulty\tAverage\tQuizzes")
	for _, d := range byDifficulty {
		fmt.Fprintf(tw, "%s\t%.1f%%\t%d\n", d.Difficulty, d.AverageScore, d.QuizCount)
	}
	fmt.Fprintln(tw, "\nCategory\tQuizzes")
	for _, b := range dist {
		fmt.Fprintf(tw, "%s\t%d\n", b.Category, b.Count)
	}
	return tw.Flush()
}

func runHistory(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	attempts, err := db.History(limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No quizzes taken yet.")
		return nil
	}
	return printHistory(out, attempts)
}

func printHistory(out io.Writer, attempts []model.QuizAttempt) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTOPIC\tDIFFICULTY\tSCORE\tPERCENT")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%.1f%%\n",
			humanize.Time(a.Timestamp), model.TruncateRunes(a.Topic, 40), a.Difficulty, a.Score, a.TotalQuestions, a.Percentage)
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	export, err := db.Export(limit)
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
