package cli

import (
	"fmt"
	"strings"

	"github.com/bryan-kier/productivity/internal/client"
	"github.com/bryan-kier/productivity/internal/dto"

	"github.com/spf13/cobra"
)

// report prints msg, or the queued notice when the change was deferred.
func report[T any](e *env, res client.Result[T], msg string) {
	if res.Queued {
		fmt.Fprintf(e.out, "offline: queued for sync (%d pending)\n", e.monitor.Status().Queued)
		return
	}
	fmt.Fprintln(e.out, msg)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tasksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: "List and edit tasks"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks with their subtasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.client.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			staleNote(e.out, res.Stale)
			printTasks(e.out, res.Value)
			return nil
		},
	}

	var refresh, category, deadline string
	add := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.CreateTask(cmd.Context(), client.NewTask{
				Title:       strings.Join(args, " "),
				RefreshType: refresh,
				CategoryID:  optional(category),
				Deadline:    deadline,
			})
			if err != nil {
				return err
			}
			report(e, res, "created task "+res.Value.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&refresh, "refresh", "r", "", "recurring reset: none, daily or weekly")
	add.Flags().StringVarP(&category, "category", "c", "", "category id")
	add.Flags().StringVarP(&deadline, "deadline", "d", "", "deadline, YYYY-MM-DD or ISO-8601")

	done := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.SetTaskCompleted(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			report(e, res, "completed "+args[0])
			return nil
		},
	}

	undo := &cobra.Command{
		Use:   "undo ID",
		Short: "Mark a task not completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.SetTaskCompleted(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			report(e, res, "reopened "+args[0])
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.DeleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report(e, res, "deleted "+args[0])
			return nil
		},
	}

	reorder := &cobra.Command{
		Use:   "reorder ID...",
		Short: "Set the display order of the given tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.ReorderTasks(cmd.Context(), args)
			if err != nil {
				return err
			}
			report(e, res, fmt.Sprintf("reordered %d task(s)", len(args)))
			return nil
		},
	}

	refreshCmd := &cobra.Command{
		Use:       "refresh daily|weekly",
		Short:     "Reset the completion of recurring tasks now",
		ValidArgs: []string{"daily", "weekly"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res client.Result[dto.MessageResponse]
				err error
			)
			if args[0] == "daily" {
				res, err = e.client.RefreshDaily(cmd.Context())
			} else {
				res, err = e.client.RefreshWeekly(cmd.Context())
			}
			if err != nil {
				return err
			}
			report(e, res, res.Value.Message)
			return nil
		},
	}

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete tasks and subtasks completed more than a week ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.client.CleanupCompleted(cmd.Context())
			if err != nil {
				return err
			}
			report(e, res, res.Value.Message)
			return nil
		},
	}

	cmd.AddCommand(list, add, done, undo, rm, reorder, refreshCmd, cleanup)
	return cmd
}

func subtasksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "subtasks", Short: "Edit the subtasks of a task"}

	list := &cobra.Command{
		Use:   "list TASK_ID",
		Short: "List the subtasks of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.ListSubtasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			staleNote(e.out, res.Stale)
			printSubtasks(e.out, res.Value)
			return nil
		},
	}

	var deadline string
	add := &cobra.Command{
		Use:   "add TASK_ID TITLE...",
		Short: "Add a subtask to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.CreateSubtask(cmd.Context(), client.NewSubtask{
				TaskID:   args[0],
				Title:    strings.Join(args[1:], " "),
				Deadline: deadline,
			})
			if err != nil {
				return err
			}
			report(e, res, "created subtask "+res.Value.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&deadline, "deadline", "d", "", "deadline, YYYY-MM-DD or ISO-8601")

	var undo bool
	done := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a subtask completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.SetSubtaskCompleted(cmd.Context(), args[0], !undo)
			if err != nil {
				return err
			}
			report(e, res, "updated "+args[0])
			return nil
		},
	}
	done.Flags().BoolVar(&undo, "undo", false, "mark not completed instead")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.DeleteSubtask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report(e, res, "deleted "+args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, done, rm)
	return cmd
}

func notesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "notes", Short: "List and edit notes"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.client.ListNotes(cmd.Context())
			if err != nil {
				return err
			}
			staleNote(e.out, res.Stale)
			printNotes(e.out, res.Value)
			return nil
		},
	}

	var content, category string
	add := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Create a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.CreateNote(cmd.Context(), client.NewNote{
				Title:      strings.Join(args, " "),
				Content:    content,
				CategoryID: optional(category),
			})
			if err != nil {
				return err
			}
			report(e, res, "created note "+res.Value.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&content, "content", "m", "", "note body")
	add.Flags().StringVarP(&category, "category", "c", "", "category id")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.DeleteNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report(e, res, "deleted "+args[0])
			return nil
		},
	}

	var title, body, noteCategory string
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the title, content or category of a note",
		Long:  "Only the given flags change. --category \"\" removes the note from its category.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := client.Patch{}
			flags := cmd.Flags()
			if flags.Changed("title") {
				p["title"] = title
			}
			if flags.Changed("content") {
				p["content"] = body
			}
			if flags.Changed("category") {
				p["categoryId"] = optional(noteCategory)
			}
			if len(p) == 0 {
				return fmt.Errorf("nothing to change: pass --title, --content or --category")
			}
			res, err := e.client.UpdateNote(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			report(e, res, "updated "+args[0])
			return nil
		},
	}
	edit.Flags().StringVarP(&title, "title", "t", "", "new title")
	edit.Flags().StringVarP(&body, "content", "m", "", "new body")
	edit.Flags().StringVarP(&noteCategory, "category", "c", "", "category id, empty to clear")

	reorder := &cobra.Command{
		Use:   "reorder ID...",
		Short: "Set the display order of the given notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.ReorderNotes(cmd.Context(), args)
			if err != nil {
				return err
			}
			report(e, res, fmt.Sprintf("reordered %d note(s)", len(args)))
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, rm, reorder)
	return cmd
}

func categoriesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "categories", Short: "List and edit categories"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.client.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			staleNote(e.out, res.Stale)
			printCategories(e.out, res.Value)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add NAME...",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.CreateCategory(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			report(e, res, "created category "+res.Value.ID)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a category; its tasks and notes are kept uncategorised",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.DeleteCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report(e, res, "deleted "+args[0])
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID NAME...",
		Short: "Rename a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.RenameCategory(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			report(e, res, "renamed "+args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, rename, rm)
	return cmd
}

func announcementCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "announcement", Short: "Show or set the announcement banner"}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the announcement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.client.GetAnnouncement(cmd.Context())
			if err != nil {
				return err
			}
			staleNote(e.out, res.Stale)
			if res.Value == nil {
				fmt.Fprintln(e.out, dimStyle.Render("no announcement"))
				return nil
			}
			fmt.Fprintln(e.out, res.Value.Message)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set MESSAGE...",
		Short: "Replace the announcement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client.SetAnnouncement(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			report(e, res, "announcement updated")
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func queueCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Inspect and replay changes made while offline"}

	status := &cobra.Command{
		Use:   "status",
		Short: "List queued changes, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ops, err := e.client.Queue().Pending(cmd.Context())
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				fmt.Fprintln(e.out, "queue is empty")
				return nil
			}
			for _, op := range ops {
				fmt.Fprintf(e.out, "%s %-6s %s\n",
					dimStyle.Render(op.Timestamp.Local().Format("2006-01-02 15:04:05")), op.Method, op.URL)
			}
			return nil
		},
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Replay queued changes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.client.Flush(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "processed %d, remaining %d\n", res.Processed, res.Remaining)
			return nil
		},
	}

	cmd.AddCommand(status, flush)
	return cmd
}

func statusCmd(e *env) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !watch {
				fmt.Fprintln(e.out, banner(e.monitor.Status()))
				return nil
			}
			// Listeners run on the monitor's goroutine, so last needs no lock.
			var last string
			unsub := e.monitor.Subscribe(func(st client.Status) {
				if line := banner(st); line != last {
					last = line
					fmt.Fprintln(e.out, line)
				}
			})
			defer unsub()
			e.monitor.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep checking and print the banner whenever it changes")
	return cmd
}
