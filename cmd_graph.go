package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
	"github.com/wagnerlima/knowledgeflow/internal/tools"
)

func (a *app) linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "link",
		Aliases: []string{"links"},
		Short:   "Link items and follow links",
	}

	var linkType string
	add := &cobra.Command{
		Use:   "add <from-id> <to-id>",
		Short: "Link one item to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				l, created, err := s.CreateLink(ctx, args[0], args[1], linkType)
				if err != nil {
					return err
				}
				return a.emit(cmd, tools.LinkResult{Link: l, Created: created}, func(p *printer) {
					if created {
						p.line("linked %s -> %s", p.id.Render(l.FromID), p.id.Render(l.ToID))
					} else {
						p.line("already linked %s -> %s", p.id.Render(l.FromID), p.id.Render(l.ToID))
					}
				})
			})
		},
	}
	add.Flags().StringVar(&linkType, "type", models.DefaultLinkType, "Link type")

	rm := &cobra.Command{
		Use:     "rm <from-id> <to-id>",
		Aliases: []string{"delete"},
		Short:   "Remove a link",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				ok, err := s.DeleteLink(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					return notFoundErr("link", args[0]+" -> "+args[1])
				}
				return a.say(cmd, "unlinked %s -> %s", args[0], args[1])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <id>",
		Short: "List the raw links touching an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				links, err := s.GetLinks(ctx, args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, links, func(p *printer) { p.links(links) })
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show what an item links to and what links to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				res, err := tools.Neighbours(ctx, s, args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, res, func(p *printer) {
					p.refs("links to", res.Forward)
					p.refs("linked from", res.Backlinks)
				})
			})
		},
	}

	auto := &cobra.Command{
		Use:   "auto <note-id>",
		Short: "Link a note to the notes its [[Title]] markers name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				n, err := s.GetNote(ctx, args[0])
				if err != nil {
					return err
				}
				count, err := storage.AutoCreateLinks(ctx, s, n.ID, n.Content)
				if err != nil {
					return err
				}
				return a.say(cmd, "%d links created", count)
			})
		},
	}

	cmd.AddCommand(add, rm, list, show, auto)
	return cmd
}

func (a *app) categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories", "cat"},
		Short:   "Organize notes and tasks into categories",
	}

	var (
		parent  string
		catType string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.NewCategory{Name: args[0], Type: models.CategoryType(catType)}
			if cmd.Flags().Changed("parent") {
				in.ParentID = &parent
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				c, created, err := s.CreateCategory(ctx, in)
				if err != nil {
					return err
				}
				return a.emit(cmd, tools.CategoryResult{Category: c, Created: created}, func(p *printer) {
					if created {
						p.line("created category %s %s", p.id.Render(c.ID), c.Name)
					} else {
						p.line("category %s %s already exists", p.id.Render(c.ID), c.Name)
					}
				})
			})
		},
	}
	add.Flags().StringVar(&parent, "parent", "", "Parent category id")
	add.Flags().StringVar(&catType, "type", string(models.CategoryNote), "note, task or both")

	var listType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, err := parseCategoryFilter(listType)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				cats, err := s.ListCategories(ctx, typ)
				if err != nil {
					return err
				}
				return a.emit(cmd, cats, func(p *printer) { p.categories(cats) })
			})
		},
	}
	list.Flags().StringVar(&listType, "type", "", "Only categories usable for note or task")

	var treeType, mode string
	tree := &cobra.Command{
		Use:   "tree",
		Short: "Show categories arranged by parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, err := parseCategoryFilter(treeType)
			if err != nil {
				return err
			}
			m, err := a.treeMode()
			if err != nil {
				return err
			}
			if mode != "" {
				if m, err = storage.ParseTreeMode(mode); err != nil {
					return err
				}
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				forest, err := storage.CategoryTree(ctx, s, typ, m)
				if err != nil {
					return err
				}
				return a.emit(cmd, forest, func(p *printer) { p.tree(forest) })
			})
		},
	}
	tree.Flags().StringVar(&treeType, "type", "", "Only categories usable for note or task")
	tree.Flags().StringVar(&mode, "mode", "", "recursive or flat (default from storage.tree_mode)")

	var unassign bool
	assign := &cobra.Command{
		Use:   "assign <note|task> <item-id> [category-id]",
		Short: "Put a note or task in a category",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, itemID := args[0], args[1]
			var category *string
			switch {
			case len(args) == 3 && !unassign:
				category = &args[2]
			case len(args) == 2 && unassign:
			default:
				return fmt.Errorf("give a category id or --clear")
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				var (
					ok  bool
					err error
				)
				switch kind {
				case models.KindNote:
					ok, err = s.AssignNoteCategory(ctx, itemID, category)
				case models.KindTask:
					ok, err = s.AssignTaskCategory(ctx, itemID, category)
				default:
					return fmt.Errorf("unknown item kind %q (want note or task)", kind)
				}
				if err != nil {
					return err
				}
				if !ok {
					return notFoundErr(kind, itemID)
				}
				if category == nil {
					return a.say(cmd, "cleared category of %s %s", kind, itemID)
				}
				return a.say(cmd, "assigned %s %s to category %s", kind, itemID, *category)
			})
		},
	}
	assign.Flags().BoolVar(&unassign, "clear", false, "Remove the item from its category")

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a category and clear it from notes and tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				ok, err := s.DeleteCategory(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return notFoundErr("category", args[0])
				}
				return a.say(cmd, "deleted category %s", args[0])
			})
		},
	}

	cmd.AddCommand(add, list, tree, assign, rm)
	return cmd
}

func parseCategoryFilter(s string) (models.CategoryType, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseCategoryType(s)
}

func (a *app) searchCmd() *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes and tasks",
		Long: `Search notes and tasks. The query is matched case-insensitively as a
substring of titles, bodies and tags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				var (
					res models.SearchResults
					err error
				)
				switch only {
				case "":
					var all *models.SearchResults
					if all, err = storage.SearchAll(ctx, s, args[0]); err == nil {
						res = *all
					}
				case "notes":
					res.Notes, err = s.SearchNotes(ctx, args[0])
				case "tasks":
					res.Tasks, err = s.SearchTasks(ctx, args[0])
				default:
					return fmt.Errorf("unknown --only %q (want notes or tasks)", only)
				}
				if err != nil {
					return err
				}
				return a.emit(cmd, res, func(p *printer) {
					if only != "tasks" {
						p.line("%s", p.title.Render("notes"))
						p.notes(res.Notes)
					}
					if only == "" {
						p.line("")
					}
					if only != "notes" {
						p.line("%s", p.title.Render("tasks"))
						p.tasks(res.Tasks)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&only, "only", "", "Restrict to notes or tasks")
	return cmd
}
