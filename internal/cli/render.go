package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/bryan-kier/productivity/internal/client"
	"github.com/bryan-kier/productivity/internal/dto"

	"github.com/charmbracelet/lipgloss"
)

var (
	onlineStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2E7D32"))
	offlineStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#C62828"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	doneStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("#808080"))
	tagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7E57C2"))
)

// banner renders the connectivity line shown by `taskctl status`.
func banner(st client.Status) string {
	if st.Online {
		text := "online"
		if st.Queued > 0 {
			text += fmt.Sprintf(" · %d change(s) waiting to sync", st.Queued)
		}
		return onlineStyle.Render(text)
	}
	text := "offline · changes will sync when the server is reachable"
	if st.Queued > 0 {
		text = fmt.Sprintf("offline · %d change(s) queued", st.Queued)
	}
	return offlineStyle.Render(text)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func staleNote(w io.Writer, stale bool) {
	if stale {
		fmt.Fprintln(w, dimStyle.Render("(offline: showing cached data)"))
	}
}

func printTasks(w io.Writer, tasks []dto.TaskListItem) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no tasks"))
		return
	}
	for _, t := range tasks {
		title := t.Title
		if t.Completed {
			title = doneStyle.Render(title)
		}
		var tags []string
		if t.RefreshType != "" && t.RefreshType != "none" {
			tags = append(tags, t.RefreshType)
		}
		if t.CategoryName != nil {
			tags = append(tags, "#"+*t.CategoryName)
		}
		if t.Deadline != nil {
			tags = append(tags, "due "+t.Deadline.Format("2006-01-02"))
		}
		line := fmt.Sprintf("%s %s", checkbox(t.Completed), title)
		if len(tags) > 0 {
			line += " " + tagStyle.Render(strings.Join(tags, " "))
		}
		fmt.Fprintf(w, "%s %s\n", line, dimStyle.Render(t.ID))
		for _, s := range t.Subtasks {
			fmt.Fprintf(w, "    %s %s %s\n", checkbox(s.Completed), s.Title, dimStyle.Render(s.ID))
		}
	}
}

func printSubtasks(w io.Writer, subs []dto.SubtaskResponse) {
	if len(subs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no subtasks"))
		return
	}
	for _, s := range subs {
		line := fmt.Sprintf("%s %s", checkbox(s.Completed), s.Title)
		if s.Deadline != nil {
			line += " " + tagStyle.Render("due "+s.Deadline.Format("2006-01-02"))
		}
		fmt.Fprintf(w, "%s %s\n", line, dimStyle.Render(s.ID))
	}
}

func printNotes(w io.Writer, notes []dto.NoteResponse) {
	if len(notes) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no notes"))
		return
	}
	for _, n := range notes {
		head := n.Title
		if n.CategoryName != nil {
			head += " " + tagStyle.Render("#"+*n.CategoryName)
		}
		fmt.Fprintf(w, "%s %s\n", head, dimStyle.Render(n.ID))
		if n.Content != "" {
			for _, line := range strings.Split(n.Content, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}

func printCategories(w io.Writer, cats []dto.CategoryResponse) {
	if len(cats) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no categories"))
		return
	}
	for _, c := range cats {
		fmt.Fprintf(w, "%s %s\n", c.Name, dimStyle.Render(c.ID))
	}
}
