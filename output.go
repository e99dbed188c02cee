package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printer writes the human-readable forms. Styles degrade to plain text
// when w is not a terminal.
type printer struct {
	w   io.Writer
	err error

	title  lipgloss.Style
	muted  lipgloss.Style
	id     lipgloss.Style
	status map[models.Status]lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		title: r.NewStyle().Bold(true),
		muted: r.NewStyle().Faint(true),
		id:    r.NewStyle().Foreground(lipgloss.Color("6")),
		status: map[models.Status]lipgloss.Style{
			models.StatusPending:    r.NewStyle(),
			models.StatusInProgress: r.NewStyle().Foreground(lipgloss.Color("3")),
			models.StatusCompleted:  r.NewStyle().Foreground(lipgloss.Color("2")),
		},
	}
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) empty(what string) {
	p.line("%s", p.muted.Render("no "+what))
}

func (p *printer) tags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + p.muted.Render("#"+strings.Join(tags, " #"))
}

func stamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func orNone(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func (p *printer) notes(notes []models.Note) {
	if len(notes) == 0 {
		p.empty("notes")
		return
	}
	for _, n := range notes {
		p.line("%s  %s%s", p.id.Render(n.ID), n.Title, p.tags(n.Tags))
	}
}

// note prints one note. body replaces the raw content when non-empty.
func (p *printer) note(n *models.Note, body string) {
	p.line("%s", p.title.Render(n.Title))
	p.line("%s", p.muted.Render(fmt.Sprintf("id %s  category %s  created %s  updated %s",
		n.ID, orNone(n.CategoryID), stamp(n.CreatedAt), stamp(n.UpdatedAt))))
	if len(n.Tags) > 0 {
		p.line("tags:%s", p.tags(n.Tags))
	}
	if body == "" {
		body = n.Content
	}
	if body != "" {
		p.line("")
		p.line("%s", strings.TrimRight(body, "\n"))
	}
}

var statusMarks = map[models.Status]string{
	models.StatusPending:    "[ ]",
	models.StatusInProgress: "[~]",
	models.StatusCompleted:  "[x]",
}

func (p *printer) taskLine(t models.Task) string {
	mark := p.status[t.Status].Render(statusMarks[t.Status])
	s := fmt.Sprintf("%s %s  %s  %s", mark, p.id.Render(t.ID), t.Title, p.muted.Render(string(t.Priority)))
	if t.DueDate != nil {
		s += p.muted.Render("  due " + *t.DueDate)
	}
	return s + p.tags(t.Tags)
}

func (p *printer) tasks(tasks []models.Task) {
	if len(tasks) == 0 {
		p.empty("tasks")
		return
	}
	for _, t := range tasks {
		p.line("%s", p.taskLine(t))
	}
}

func (p *printer) task(t *models.Task) {
	p.line("%s", p.taskLine(*t))
	p.line("%s", p.muted.Render(fmt.Sprintf("status %s  note %s  category %s  created %s  updated %s",
		t.Status, orNone(t.LinkedNoteID), orNone(t.CategoryID), stamp(t.CreatedAt), stamp(t.UpdatedAt))))
	if t.CompletedAt != nil {
		p.line("%s", p.muted.Render("completed "+stamp(*t.CompletedAt)))
	}
	if t.Description != "" {
		p.line("")
		p.line("%s", t.Description)
	}
}

func (p *printer) links(links []models.Link) {
	if len(links) == 0 {
		p.empty("links")
		return
	}
	for _, l := range links {
		p.line("%s -> %s  %s", p.id.Render(l.FromID), p.id.Render(l.ToID), p.muted.Render(l.LinkType))
	}
}

func (p *printer) refs(heading string, refs []models.LinkRef) {
	p.line("%s", p.title.Render(heading))
	if len(refs) == 0 {
		p.line("  %s", p.muted.Render("none"))
		return
	}
	for _, r := range refs {
		title := r.Title
		if r.Missing {
			title = p.muted.Render("(missing)")
		}
		kind := ""
		if r.Kind != "" && r.Kind != models.KindNote {
			kind = " " + p.muted.Render("["+r.Kind+"]")
		}
		p.line("  %s  %s%s  %s", p.id.Render(r.ID), title, kind, p.muted.Render(r.LinkType))
	}
}

func (p *printer) categories(cats []models.Category) {
	if len(cats) == 0 {
		p.empty("categories")
		return
	}
	for _, c := range cats {
		parent := ""
		if c.ParentID != nil {
			parent = p.muted.Render("  parent " + *c.ParentID)
		}
		p.line("%s  %s  %s%s", p.id.Render(c.ID), c.Name, p.muted.Render(string(c.Type)), parent)
	}
}

func (p *printer) tree(forest []*models.CategoryNode) {
	if len(forest) == 0 {
		p.empty("categories")
		return
	}
	var walk func(n *models.CategoryNode, depth int)
	walk = func(n *models.CategoryNode, depth int) {
		p.line("%s%s %s", strings.Repeat("  ", depth), n.Category.Name, p.muted.Render("("+n.Category.ID+")"))
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, n := range forest {
		walk(n, 0)
	}
}

func (p *printer) summaries(byID map[string]string) {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p.line("%s  %s", p.id.Render(id), byID[id])
	}
}

// renderMarkdown formats note content for a terminal of the given width.
func renderMarkdown(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}
