package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
	"github.com/wagnerlima/knowledgeflow/internal/tools"
)

func (a *app) noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "note",
		Aliases: []string{"notes"},
		Short:   "Create, read, update and delete notes",
	}
	cmd.AddCommand(
		a.noteAddCmd(),
		a.noteShowCmd(),
		a.noteListCmd(),
		a.noteEditCmd(),
		a.noteRmCmd(),
	)
	return cmd
}

// readContent returns the --content value, or stdin when it is "-".
func readContent(cmd *cobra.Command, content string) (string, error) {
	if content != "-" {
		return content, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *app) noteAddCmd() *cobra.Command {
	var (
		content  string
		tags     []string
		autoLink bool
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(cmd, content)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				n, err := s.CreateNote(ctx, models.NewNote{Title: strings.Join(args, " "), Content: body, Tags: tags})
				if err != nil {
					return err
				}
				res := tools.NoteResult{Note: n}
				if autoLink {
					if res.LinksCreated, err = storage.AutoCreateLinks(ctx, s, n.ID, n.Content); err != nil {
						return err
					}
				}
				return a.emit(cmd, res, func(p *printer) {
					p.line("created note %s", p.id.Render(n.ID))
					if autoLink {
						p.line("%d links created", res.LinksCreated)
					}
				})
			})
		},
	}
	cmd.Flags().StringVarP(&content, "content", "c", "", `Note body ("-" reads stdin)`)
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag (repeatable or comma separated)")
	cmd.Flags().BoolVar(&autoLink, "auto-link", false, "Link to notes named by [[Title]] markers")
	return cmd
}

func (a *app) noteShowCmd() *cobra.Command {
	var (
		render bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note with its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				n, err := s.GetNote(ctx, args[0])
				if err != nil {
					return err
				}
				links, err := tools.Neighbours(ctx, s, n.ID)
				if err != nil {
					return err
				}
				body := ""
				if render && !a.asJSON && n.Content != "" {
					if body, err = renderMarkdown(n.Content, width); err != nil {
						return err
					}
				}
				out := struct {
					*models.Note
					Links *tools.NoteLinks `json:"links"`
				}{n, links}
				return a.emit(cmd, out, func(p *printer) {
					p.note(n, body)
					p.line("")
					p.refs("links to", links.Forward)
					p.refs("linked from", links.Backlinks)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the content as Markdown")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --render")
	return cmd
}

func (a *app) noteListCmd() *cobra.Command {
	var f models.NoteFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				notes, err := s.ListNotes(ctx, f)
				if err != nil {
					return err
				}
				return a.emit(cmd, notes, func(p *printer) { p.notes(notes) })
			})
		},
	}
	cmd.Flags().StringVarP(&f.Tag, "tag", "t", "", "Only notes with this tag")
	cmd.Flags().StringVar(&f.CategoryID, "category", "", "Only notes in this category")
	return cmd
}

func (a *app) noteEditCmd() *cobra.Command {
	var (
		title, content string
		tags           []string
		autoLink       bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title, content or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p models.NotePatch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("content") {
				body, err := readContent(cmd, content)
				if err != nil {
					return err
				}
				p.Content = &body
			}
			if cmd.Flags().Changed("tag") {
				p.Tags = &tags
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				n, err := s.UpdateNote(ctx, args[0], p)
				if err != nil {
					return err
				}
				res := tools.NoteResult{Note: n}
				if autoLink {
					if res.LinksCreated, err = storage.AutoCreateLinks(ctx, s, n.ID, n.Content); err != nil {
						return err
					}
				}
				return a.emit(cmd, res, func(pr *printer) {
					pr.line("updated note %s", pr.id.Render(n.ID))
					if autoLink {
						pr.line("%d links created", res.LinksCreated)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&content, "content", "c", "", `New body ("-" reads stdin)`)
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Replacement tags; an empty value clears them")
	cmd.Flags().BoolVar(&autoLink, "auto-link", false, "Link to notes named by [[Title]] markers")
	return cmd
}

func (a *app) noteRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note and its links",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				ok, err := s.DeleteNote(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return notFoundErr("note", args[0])
				}
				return a.say(cmd, "deleted note %s", args[0])
			})
		},
	}
}
