package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
	"github.com/wagnerlima/knowledgeflow/internal/tools"
)

// kflow runs the CLI in-process against an isolated home and data dir.
type kflow struct {
	t       *testing.T
	dataDir string
	backend string
}

func newKflow(t *testing.T, backend string) *kflow {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	return &kflow{t: t, dataDir: t.TempDir(), backend: backend}
}

func (k *kflow) run(stdin string, args ...string) (string, error) {
	k.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--backend", k.backend, "--data-dir", k.dataDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (k *kflow) ok(args ...string) string {
	k.t.Helper()
	out, err := k.run("", args...)
	require.NoError(k.t, err, "kflow %s\n%s", strings.Join(args, " "), out)
	return out
}

func jsonOut[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCLINotes(t *testing.T) {
	for _, backend := range []string{storage.BackendSQLite, storage.BackendJSON} {
		t.Run(backend, func(t *testing.T) {
			k := newKflow(t, backend)

			first := jsonOut[tools.NoteResult](t, k.ok("--json", "note", "add", "Go", "-c", "Fast", "-t", "lang,tools"))
			assert.Equal(t, "Go", first.Title)
			assert.Equal(t, []string{"lang", "tools"}, first.Tags)

			out, err := k.run("See [[Go]]", "--json", "note", "add", "Reading list", "-c", "-", "--auto-link")
			require.NoError(t, err, out)
			second := jsonOut[tools.NoteResult](t, out)
			assert.Equal(t, "See [[Go]]", second.Content)
			assert.Equal(t, 1, second.LinksCreated)

			out = k.ok("note", "list", "--tag", "lang")
			assert.Contains(t, out, "Go")
			assert.NotContains(t, out, "Reading list")

			out = k.ok("note", "show", first.ID)
			assert.Contains(t, out, "Fast")
			assert.Contains(t, out, "linked from")
			assert.Contains(t, out, "Reading list")

			edited := jsonOut[tools.NoteResult](t, k.ok("--json", "note", "edit", first.ID, "--title", "Golang"))
			assert.Equal(t, "Golang", edited.Title)
			assert.Equal(t, "Fast", edited.Content, "unchanged fields are kept")

			k.ok("note", "rm", first.ID)
			_, err = k.run("", "note", "show", first.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			_, err = k.run("", "note", "rm", first.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestCLITasks(t *testing.T) {
	k := newKflow(t, storage.BackendJSON)

	task := jsonOut[models.Task](t, k.ok("--json", "task", "add", "Write", "docs", "-p", "high", "--due", "2024-04-01"))
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	k.ok("task", "add", "Refactor")

	tasks := jsonOut[[]models.Task](t, k.ok("--json", "task", "list", "--priority", "high"))
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	_, err := k.run("", "task", "list", "--status", "blocked")
	assert.Error(t, err)
	_, err = k.run("", "task", "add", "Bad", "--due", "tomorrow")
	assert.ErrorIs(t, err, storage.ErrValidation)

	k.ok("task", "edit", task.ID, "--status", "in-progress")
	out := k.ok("task", "list", "--status", "in_progress")
	assert.Contains(t, out, "[~]")

	k.ok("task", "done", task.ID)
	done := jsonOut[models.Task](t, k.ok("--json", "task", "show", task.ID))
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	updated := jsonOut[models.Task](t, k.ok("--json", "task", "edit", task.ID, "--due", ""))
	assert.Nil(t, updated.DueDate, "empty --due clears the date")
}

func TestCLILinksAndCategories(t *testing.T) {
	k := newKflow(t, storage.BackendSQLite)

	a := jsonOut[tools.NoteResult](t, k.ok("--json", "note", "add", "A"))
	b := jsonOut[tools.NoteResult](t, k.ok("--json", "note", "add", "B"))

	res := jsonOut[tools.LinkResult](t, k.ok("--json", "link", "add", a.ID, b.ID, "--type", "depends_on"))
	assert.True(t, res.Created)
	assert.Equal(t, "depends_on", res.Link.LinkType)
	out := k.ok("link", "add", a.ID, b.ID)
	assert.Contains(t, out, "already linked")

	links := jsonOut[tools.NoteLinks](t, k.ok("--json", "link", "show", b.ID))
	require.Len(t, links.Backlinks, 1)
	assert.Equal(t, "A", links.Backlinks[0].Title)
	assert.Empty(t, links.Forward)

	k.ok("link", "rm", a.ID, b.ID)
	_, err := k.run("", "link", "rm", a.ID, b.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	root := jsonOut[tools.CategoryResult](t, k.ok("--json", "category", "add", "Work", "--type", "both"))
	child := jsonOut[tools.CategoryResult](t, k.ok("--json", "category", "add", "Meetings", "--parent", root.Category.ID))
	leaf := jsonOut[tools.CategoryResult](t, k.ok("--json", "category", "add", "Standups", "--parent", child.Category.ID))

	out = k.ok("category", "tree")
	assert.Contains(t, out, "Work")
	assert.Contains(t, out, "    Standups")

	out = k.ok("category", "tree", "--mode", "flat")
	assert.Contains(t, out, "  Meetings")
	assert.NotContains(t, out, "Standups")

	k.ok("category", "assign", "note", a.ID, leaf.Category.ID)
	notes := jsonOut[[]models.Note](t, k.ok("--json", "note", "list", "--category", leaf.Category.ID))
	require.Len(t, notes, 1)

	k.ok("category", "assign", "note", a.ID, "--clear")
	notes = jsonOut[[]models.Note](t, k.ok("--json", "note", "list", "--category", leaf.Category.ID))
	assert.Empty(t, notes)

	_, err = k.run("", "category", "assign", "note", a.ID)
	assert.Error(t, err, "a category id or --clear is required")
}

func TestCLISearch(t *testing.T) {
	k := newKflow(t, storage.BackendJSON)
	k.ok("note", "add", "Garden plan", "-c", "tomatoes")
	k.ok("task", "add", "Buy tomatoes")

	res := jsonOut[models.SearchResults](t, k.ok("--json", "search", "TOMATO"))
	assert.Len(t, res.Notes, 1)
	assert.Len(t, res.Tasks, 1)

	res = jsonOut[models.SearchResults](t, k.ok("--json", "search", "tomato", "--only", "tasks"))
	assert.Empty(t, res.Notes)
	assert.Len(t, res.Tasks, 1)
}

func TestCLIRepair(t *testing.T) {
	k := newKflow(t, storage.BackendJSON)
	k.ok("note", "add", "kept?")
	require.NoError(t, os.WriteFile(filepath.Join(k.dataDir, storage.NotesFile), []byte("{oops"), 0o644))

	_, err := k.run("", "note", "list")
	assert.ErrorIs(t, err, storage.ErrCorruptStore)

	out := k.ok("repair")
	assert.Contains(t, out, "notes")
	assert.Contains(t, k.ok("note", "list"), "no notes")

	backups, err := filepath.Glob(filepath.Join(k.dataDir, storage.NotesFile+".corrupt-*"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	sq := newKflow(t, storage.BackendSQLite)
	_, err = sq.run("", "repair")
	assert.ErrorContains(t, err, "json backend")
}

func TestCLIAIRequiresProvider(t *testing.T) {
	k := newKflow(t, storage.BackendJSON)
	_, err := k.run("", "ai", "title", "some text")
	assert.True(t, errors.Is(err, errNoProvider), "got %v", err)
}

func TestCLIConfigInit(t *testing.T) {
	k := newKflow(t, storage.BackendJSON)
	path := filepath.Join(t.TempDir(), "kflow.yaml")

	k.ok("--config", path, "config", "init")
	_, err := k.run("", "--config", path, "config", "init")
	assert.Error(t, err, "existing config is kept")

	out := k.ok("--config", path, "config", "show")
	assert.Contains(t, out, "backend: json", "--backend overrides the file")
	assert.Contains(t, out, "corrupt_policy: fail")
}
