package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Create, read, update and complete tasks",
	}
	cmd.AddCommand(
		a.taskAddCmd(),
		a.taskShowCmd(),
		a.taskListCmd(),
		a.taskEditCmd(),
		a.taskDoneCmd(),
		a.taskRmCmd(),
	)
	return cmd
}

func (a *app) taskAddCmd() *cobra.Command {
	var (
		in       models.NewTask
		status   string
		priority string
		due      string
		note     string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")
			in.Status = models.Status(status)
			in.Priority = models.Priority(priority)
			if cmd.Flags().Changed("due") {
				in.DueDate = &due
			}
			if cmd.Flags().Changed("note") {
				in.LinkedNoteID = &note
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				t, err := s.CreateTask(ctx, in)
				if err != nil {
					return err
				}
				return a.emit(cmd, t, func(p *printer) {
					p.line("created task %s", p.id.Render(t.ID))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "pending, in_progress or completed")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&in.Tags, "tag", "t", nil, "Tag (repeatable or comma separated)")
	cmd.Flags().StringVar(&note, "note", "", "Id of the note this task belongs to")
	return cmd
}

func (a *app) taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				t, err := s.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, t, func(p *printer) { p.task(t) })
			})
		},
	}
}

func (a *app) taskListCmd() *cobra.Command {
	var status, priority, tag, category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := models.ParseTaskFilter(status, priority, tag, category)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				tasks, err := s.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				return a.emit(cmd, tasks, func(p *printer) { p.tasks(tasks) })
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only tasks with this status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Only tasks with this priority")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only tasks with this tag")
	cmd.Flags().StringVar(&category, "category", "", "Only tasks in this category")
	return cmd
}

func (a *app) taskEditCmd() *cobra.Command {
	var (
		title, description string
		status, priority   string
		due, note          string
		tags               []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Long: `Change fields of a task. Only flags that are given are applied; an empty
--due or --note clears that field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("description") {
				p.Description = &description
			}
			if flags.Changed("status") {
				st := models.Status(status)
				p.Status = &st
			}
			if flags.Changed("priority") {
				pr := models.Priority(priority)
				p.Priority = &pr
			}
			if flags.Changed("due") {
				p.DueDate = &due
			}
			if flags.Changed("tag") {
				p.Tags = &tags
			}
			if flags.Changed("note") {
				p.LinkedNoteID = &note
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				t, err := s.UpdateTask(ctx, args[0], p)
				if err != nil {
					return err
				}
				return a.emit(cmd, t, func(pr *printer) {
					pr.line("updated task %s", pr.id.Render(t.ID))
				})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "New status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Replacement tags")
	cmd.Flags().StringVar(&note, "note", "", "New linked note id")
	return cmd
}

func (a *app) taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"complete"},
		Short:   "Mark a task completed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				ok, err := s.CompleteTask(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return notFoundErr("task", args[0])
				}
				return a.say(cmd, "completed task %s", args[0])
			})
		},
	}
}

func (a *app) taskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				ok, err := s.DeleteTask(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return notFoundErr("task", args[0])
				}
				return a.say(cmd, "deleted task %s", args[0])
			})
		},
	}
}
