package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
	"github.com/wagnerlima/knowledgeflow/internal/tools"
)

func (a *app) aiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Summarize items and suggest titles with a language model",
		Long: `Summarize notes and tasks and suggest titles. Requires ai.provider
(openai or gemini) and an API key in the config, KFLOW_AI_API_KEY, or the
provider's OPENAI_API_KEY / GEMINI_API_KEY.`,
	}

	var words int
	summarize := &cobra.Command{
		Use:   "summarize <note|task> <id>",
		Short: "Summarize one note or task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.agent(cmd.Context())
			if err != nil {
				return err
			}
			kind, id := args[0], args[1]
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				var text string
				switch kind {
				case models.KindNote:
					n, err := s.GetNote(ctx, id)
					if err != nil {
						return err
					}
					if text, err = agent.SummarizeNote(ctx, *n, words); err != nil {
						return err
					}
				case models.KindTask:
					t, err := s.GetTask(ctx, id)
					if err != nil {
						return err
					}
					if text, err = agent.SummarizeTask(ctx, *t, words); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown item kind %q (want note or task)", kind)
				}
				return a.emit(cmd, tools.Summary{ID: id, Summary: text}, func(p *printer) {
					p.line("%s", text)
				})
			})
		},
	}
	summarize.Flags().IntVarP(&words, "words", "w", 0, "Approximate summary length (default ai.max_words)")

	var (
		batchWords int
		batchTag   string
	)
	summarizeAll := &cobra.Command{
		Use:   "summarize-all <notes|tasks>",
		Short: "Summarize every note or task, optionally only those with a tag",
		Long: `Summarize every note or task. Calls run concurrently up to ai.concurrency.
Summaries that succeed are printed even when others fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.agent(cmd.Context())
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				var (
					summaries map[string]string
					batchErr  error
				)
				switch args[0] {
				case "notes", models.KindNote:
					notes, err := s.ListNotes(ctx, models.NoteFilter{Tag: batchTag})
					if err != nil {
						return err
					}
					summaries, batchErr = agent.BatchSummarizeNotes(ctx, notes, batchWords)
				case "tasks", models.KindTask:
					tasks, err := s.ListTasks(ctx, models.TaskFilter{Tag: batchTag})
					if err != nil {
						return err
					}
					summaries, batchErr = agent.BatchSummarizeTasks(ctx, tasks, batchWords)
				default:
					return fmt.Errorf("unknown collection %q (want notes or tasks)", args[0])
				}
				if err := a.emit(cmd, summaries, func(p *printer) { p.summaries(summaries) }); err != nil {
					return err
				}
				return batchErr
			})
		},
	}
	summarizeAll.Flags().IntVarP(&batchWords, "words", "w", 0, "Approximate summary length (default ai.max_words)")
	summarizeAll.Flags().StringVarP(&batchTag, "tag", "t", "", "Only items with this tag")

	var (
		titleWords int
		fromNote   string
	)
	title := &cobra.Command{
		Use:   "title [text...]",
		Short: `Suggest a title for text, a note's content (--note) or stdin ("-")`,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.agent(cmd.Context())
			if err != nil {
				return err
			}
			content := strings.Join(args, " ")
			if content == "-" {
				if content, err = readContent(cmd, "-"); err != nil {
					return err
				}
			}
			if fromNote != "" {
				err := a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
					n, err := s.GetNote(ctx, fromNote)
					if err != nil {
						return err
					}
					content = n.Content
					return nil
				})
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("nothing to title: pass text, --note or -")
			}
			t, err := agent.GenerateTitle(cmd.Context(), content, titleWords)
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]string{"title": t}, func(p *printer) { p.line("%s", t) })
		},
	}
	title.Flags().IntVarP(&titleWords, "words", "w", 0, "Maximum title length in words (default 5)")
	title.Flags().StringVar(&fromNote, "note", "", "Use the content of this note")

	cmd.AddCommand(summarize, summarizeAll, title)
	return cmd
}
