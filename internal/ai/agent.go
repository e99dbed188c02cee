// Package ai summarizes notes and tasks and suggests titles through a hosted
// language model. Failures are returned as *Error, never as text.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

// Completer is one round trip to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Providers understood by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultSummaryWords = 30
	defaultTitleWords   = 5
	summaryMaxTokens    = 150
	titleMaxTokens      = 50
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	// MaxWords is the summary length used when a call passes zero.
	MaxWords int
	// Concurrency bounds batch summaries. Zero means one call at a time.
	Concurrency int
}

// Agent runs summarization and title prompts against a Completer.
type Agent struct {
	llm         Completer
	log         *zap.Logger
	maxWords    int
	concurrency int
}

// New builds an agent for the configured provider.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Agent, error) {
	var (
		llm Completer
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		llm, err = NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case ProviderGemini:
		llm, err = NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	default:
		err = &Error{Op: "ai", Kind: KindConfig, Err: fmt.Errorf("unknown provider %q", cfg.Provider)}
	}
	if err != nil {
		return nil, err
	}
	return NewAgent(llm, cfg, log), nil
}

// NewAgent wraps an existing Completer. Only MaxWords and Concurrency are read from cfg.
func NewAgent(llm Completer, cfg Config, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Agent{llm: llm, log: log, maxWords: cfg.MaxWords, concurrency: cfg.Concurrency}
	if a.maxWords <= 0 {
		a.maxWords = defaultSummaryWords
	}
	if a.concurrency <= 0 {
		a.concurrency = 1
	}
	return a
}

func (a *Agent) complete(ctx context.Context, op, system, user string, maxTokens int) (string, error) {
	start := time.Now()
	text, err := a.llm.Complete(ctx, system, user, maxTokens)
	if err != nil {
		a.log.Debug("completion failed", zap.String("op", op), zap.Error(err))
		return "", wrap(op, KindUpstream, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", &Error{Op: op, Kind: KindEmpty, Err: ErrNoCompletion}
	}
	a.log.Debug("completion done", zap.String("op", op), zap.Duration("took", time.Since(start)))
	return strings.TrimSpace(text), nil
}

// SummarizeText condenses text to about maxWords words. Zero uses the
// configured default.
func (a *Agent) SummarizeText(ctx context.Context, text string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = a.maxWords
	}
	system := fmt.Sprintf("You are a summarization expert. Summarize the following text into "+
		"approximately %d words or less. Be concise and capture the key points.", maxWords)
	return a.complete(ctx, "summarize", system, "Summarize this text:\n\n"+text, summaryMaxTokens)
}

// SummarizeNote summarizes a note's title and content.
func (a *Agent) SummarizeNote(ctx context.Context, n models.Note, maxWords int) (string, error) {
	return a.SummarizeText(ctx, noteText(n), maxWords)
}

// SummarizeTask summarizes a task's title, description, status and priority.
func (a *Agent) SummarizeTask(ctx context.Context, t models.Task, maxWords int) (string, error) {
	return a.SummarizeText(ctx, taskText(t), maxWords)
}

func noteText(n models.Note) string {
	return fmt.Sprintf("Title: %s\nContent: %s", n.Title, n.Content)
}

func taskText(t models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\nDescription: %s", t.Title, t.Description)
	if t.Status != "" {
		fmt.Fprintf(&b, "\nStatus: %s", t.Status)
	}
	if t.Priority != "" {
		fmt.Fprintf(&b, "\nPriority: %s", t.Priority)
	}
	return b.String()
}

// BatchSummarizeNotes summarizes each note with an id. Summaries that
// succeed are returned even when others fail; the failures are joined into
// the error.
func (a *Agent) BatchSummarizeNotes(ctx context.Context, notes []models.Note, maxWords int) (map[string]string, error) {
	texts := make(map[string]string, len(notes))
	for _, n := range notes {
		if n.ID != "" {
			texts[n.ID] = noteText(n)
		}
	}
	return a.batch(ctx, texts, maxWords)
}

// BatchSummarizeTasks is BatchSummarizeNotes for tasks.
func (a *Agent) BatchSummarizeTasks(ctx context.Context, tasks []models.Task, maxWords int) (map[string]string, error) {
	texts := make(map[string]string, len(tasks))
	for _, t := range tasks {
		if t.ID != "" {
			texts[t.ID] = taskText(t)
		}
	}
	return a.batch(ctx, texts, maxWords)
}

func (a *Agent) batch(ctx context.Context, texts map[string]string, maxWords int) (map[string]string, error) {
	var (
		mu        sync.Mutex
		summaries = make(map[string]string, len(texts))
		errs      []error
	)
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for id, text := range texts {
		g.Go(func() error {
			summary, err := a.SummarizeText(ctx, text, maxWords)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("item %s: %w", id, err))
				return nil
			}
			summaries[id] = summary
			return nil
		})
	}
	_ = g.Wait()
	return summaries, errors.Join(errs...)
}

// GenerateTitle proposes a title of at most maxWords words for content.
// Zero means five words. Surrounding quotes are removed.
func (a *Agent) GenerateTitle(ctx context.Context, content string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = defaultTitleWords
	}
	system := fmt.Sprintf("You are a title generator. Generate a concise title of %d words or less "+
		"that captures the essence of the text.", maxWords)
	title, err := a.complete(ctx, "generate_title", system, "Generate a title for:\n\n"+content, titleMaxTokens)
	if err != nil {
		return "", err
	}
	title = strings.Trim(title, `"'`)
	if title == "" {
		return "", &Error{Op: "generate_title", Kind: KindEmpty, Err: ErrNoCompletion}
	}
	return title, nil
}
