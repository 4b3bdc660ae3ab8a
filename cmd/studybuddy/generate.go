package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/studybuddy/internal/config"
	"github.com/pavelanni/studybuddy/internal/llm/prompts"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/pdftext"
	"github.com/pavelanni/studybuddy/internal/store"
	"github.com/pavelanni/studybuddy/internal/study"
)

var errNoSubject = errors.New("a topic argument or --pdf is required")

type textOp func(s *study.Service, ctx context.Context, subject string, d model.Difficulty) (string, error)

func textCmd(use, short string, op textOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [topic or text...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viperForCmd(cmd)
			setupLogging(v)

			subject, err := resolveSubject(args, v.GetString("pdf"))
			if err != nil {
				return err
			}
			svc, _, cfg, err := newService(v)
			if err != nil {
				return err
			}
			ctx, cancel := generationContext(cmd.Context(), cfg)
			defer cancel()

			out, err := op(svc, ctx, subject, cfg.Difficulty)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	addContentFlags(cmd)
	return cmd
}

func flashcardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flashcards [topic or text...]",
		Short: "Generate study flashcards",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viperForCmd(cmd)
			setupLogging(v)

			subject, err := resolveSubject(args, v.GetString("pdf"))
			if err != nil {
				return err
			}
			svc, _, cfg, err := newService(v)
			if err != nil {
				return err
			}
			ctx, cancel := generationContext(cmd.Context(), cfg)
			defer cancel()

			cards, err := svc.Flashcards(ctx, subject, cfg.Difficulty, v.GetInt("count"))
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				return errors.New("no flashcards could be generated, please try again")
			}
			return printFlashcards(cmd.OutOrStdout(), cards)
		},
	}
	addContentFlags(cmd)
	cmd.Flags().IntP("count", "n", prompts.DefaultQuantity, "Number of flashcards")
	return cmd
}

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz [topic or text...]",
		Short: "Take an interactive quiz; the result is saved to the progress history",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viperForCmd(cmd)
			setupLogging(v)

			subject, err := resolveSubject(args, v.GetString("pdf"))
			if err != nil {
				return err
			}
			svc, _, cfg, err := newService(v)
			if err != nil {
				return err
			}

			db, err := store.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx, cancel := generationContext(cmd.Context(), cfg)
			items, err := svc.Quiz(ctx, subject, cfg.Difficulty, v.GetInt("count"))
			cancel()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return errors.New("no quiz questions could be generated, please try again")
			}

			answers, err := askQuiz(cmd.InOrStdin(), cmd.OutOrStdout(), items)
			if err != nil {
				return err
			}
			score := study.Grade(items, answers)
			printReview(cmd.OutOrStdout(), study.Review(items, answers), score)

			attempt, err := db.SaveResult(subject, cfg.Difficulty, score.Correct, score.Total)
			if err != nil {
				return fmt.Errorf("save quiz result: %w", err)
			}
			slog.Debug("quiz result saved", "id", attempt.ID)
			return nil
		},
	}
	addContentFlags(cmd)
	addDBFlag(cmd)
	cmd.Flags().IntP("count", "n", prompts.DefaultQuantity, "Number of questions")
	return cmd
}

func addContentFlags(cmd *cobra.Command) {
	cmd.Flags().String("pdf", "", "Read the subject from a PDF file instead of arguments")
	addLLMFlags(cmd)
	addLogFlags(cmd)
}

// resolveSubject prefers the PDF text over the positional arguments.
func resolveSubject(args []string, pdfPath string) (string, error) {
	if pdfPath != "" {
		text := pdftext.ExtractFile(pdfPath)
		if pdftext.IsError(text) {
			return "", errors.New(text)
		}
		if text != "" {
			return text, nil
		}
		slog.Warn("pdf contains no text, falling back to arguments", "path", pdfPath)
	}
	subject := strings.TrimSpace(strings.Join(args, " "))
	if subject == "" {
		return "", errNoSubject
	}
	return subject, nil
}

func generationContext(ctx context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	if cfg.LLMTimeout > 0 {
		return context.WithTimeout(ctx, cfg.LLMTimeout)
	}
	return context.WithCancel(ctx)
}

// askQuiz prints each question and reads one answer label per line.
func askQuiz(in io.Reader, out io.Writer, items []model.QuizItem) ([]string, error) {
	sc := bufio.NewScanner(in)
	answers := make([]string, len(items))
	for i, item := range items {
		fmt.Fprintf(out, "\nQuestion %d: %s\n", i+1, item.Question)
		for _, label := range item.Labels() {
			fmt.Fprintf(out, "  %s) %s\n", label, item.Options[label])
		}
		for {
			fmt.Fprint(out, "Your answer: ")
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return nil, fmt.Errorf("read answer: %w", err)
				}
				// End of input leaves the remaining questions unanswered.
				fmt.Fprintln(out)
				return answers, nil
			}
			answer := strings.ToUpper(strings.TrimSpace(sc.Text()))
			if answer == "" || item.HasOption(answer) {
				answers[i] = answer
				break
			}
			fmt.Fprintf(out, "Please choose one of %s.\n", strings.Join(item.Labels(), ", "))
		}
	}
	return answers, nil
}

func printReview(out io.Writer, results []study.QuestionResult, score study.Score) {
	fmt.Fprintln(out)
	for _, r := range results {
		switch {
		case r.Item.Ungradable:
			fmt.Fprintf(out, "%d. could not be graded\n", r.Number)
		case r.Correct:
			fmt.Fprintf(out, "%d. correct (%s)\n", r.Number, r.Answer)
		case r.Answer == "":
			fmt.Fprintf(out, "%d. no answer, correct: %s) %s\n", r.Number, r.Item.CorrectAnswer, r.CorrectText)
		default:
			fmt.Fprintf(out, "%d. incorrect (%s), correct: %s) %s\n", r.Number, r.Answer, r.Item.CorrectAnswer, r.CorrectText)
		}
		if r.Item.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", r.Item.Explanation)
		}
	}
	fmt.Fprintf(out, "\nFinal Score: %d/%d (%.1f%%)\n", score.Correct, score.Total, score.Percentage())
}

func printFlashcards(out io.Writer, cards []model.Flashcard) error {
	for i, c := range cards {
		if _, err := fmt.Fprintf(out, "Card %d\n  Q: %s\n  A: %s\n\n", i+1, c.Front, c.Back); err != nil {
			return err
		}
	}
	return nil
}
