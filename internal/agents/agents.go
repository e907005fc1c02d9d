// Package agents runs NPC dialogue generation in waves. Speakers within a
// wave are generated concurrently on a bounded pool; waves run in order and
// each one sees the lines produced before it.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/pkg/actor"
	"github.com/jwebster45206/werewolf-engine/pkg/chat"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/textfilter"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

const (
	DefaultMaxWorkers   = 4
	DefaultContextLines = 5
)

// ErrExtraction marks a result whose output could not be parsed.
var ErrExtraction = errors.New("could not extract decision")

// ProgressKind tags a progress event.
type ProgressKind string

const (
	ProgressTyping ProgressKind = "typing"
	ProgressLine   ProgressKind = "line"
	ProgressError  ProgressKind = "error"
	ProgressDone   ProgressKind = "done"
)

// Progress is one live update from a run.
type Progress struct {
	Kind ProgressKind
	Name string
	Text string
}

// Request describes one discussion run.
type Request struct {
	Names        []string          // used as a single wave when Waves is empty
	Waves        [][]string        // speaker groups, in order
	Hints        map[string]string // private per-speaker instructions
	PriorContext string            // earlier discussion text for the day
	PlayerLine   string            // the human's line, already formatted
}

// Result is one speaker's outcome. Fallback holds the raw text when nothing
// could be extracted.
type Result struct {
	Name     string
	Thought  string
	Message  string
	Fallback string
	Err      error
}

// Output is a finished run.
type Output struct {
	Results  []Result
	Scene    string
	Thoughts map[string]string
}

// Errored reports the speakers whose calls failed.
func (o *Output) Errored() []string {
	var names []string
	for _, r := range o.Results {
		if r.Err != nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// Engine drives the generator for a set of speakers.
type Engine struct {
	gen          services.Generator
	roster       actor.Roster
	logger       *slog.Logger
	maxWorkers   int
	contextLines int
	extractors   []Extractor
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxWorkers bounds concurrent calls per wave.
func WithMaxWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxWorkers = n
		}
	}
}

// WithContextLines sets how many recent lines are carried between waves.
func WithContextLines(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.contextLines = n
		}
	}
}

// WithExtractors replaces the salvage chain.
func WithExtractors(chain ...Extractor) Option {
	return func(e *Engine) {
		if len(chain) > 0 {
			e.extractors = chain
		}
	}
}

// New creates an engine.
func New(gen services.Generator, roster actor.Roster, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		gen:          gen,
		roster:       roster,
		logger:       logger,
		maxWorkers:   DefaultMaxWorkers,
		contextLines: DefaultContextLines,
		extractors:   DefaultExtractors,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run generates every wave of req against a snapshot of the game. gs and
// notes are only read. Progress events, if progress is non-nil, end with a
// single ProgressDone on every return path. The error is non-nil only when
// ctx ends the run early.
func (e *Engine) Run(ctx context.Context, gs *state.GameState, notes *state.Notes, req Request, progress chan<- Progress) (out *Output, err error) {
	emit := func(p Progress) {
		if progress == nil {
			return
		}
		select {
		case progress <- p:
		case <-ctx.Done():
		}
	}
	defer func() {
		if progress == nil {
			return
		}
		if ctx.Err() != nil {
			select {
			case progress <- Progress{Kind: ProgressDone}:
			default:
			}
			return
		}
		progress <- Progress{Kind: ProgressDone}
	}()

	waves := req.Waves
	if len(waves) == 0 && len(req.Names) > 0 {
		waves = [][]string{req.Names}
	}

	out = &Output{Thoughts: make(map[string]string)}
	var completed []string
	if req.PlayerLine != "" {
		completed = append(completed, req.PlayerLine)
	}

	for i, wave := range waves {
		if len(wave) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		e.logger.Debug("Running wave", "wave", i+1, "waves", len(waves), "speakers", wave)
		running := BuildRunningContext(req.PriorContext, completed, e.contextLines)
		emit(Progress{Kind: ProgressTyping, Name: wave[0]})

		results := e.runWave(ctx, gs, notes, wave, req.Hints, running, emit)
		for _, r := range results {
			out.Results = append(out.Results, r)
			if msg := strings.TrimSpace(r.Message); msg != "" {
				completed = append(completed, msg)
			}
			out.Thoughts[r.Name] = r.Thought
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.Scene = Assemble(req.PlayerLine, out.Results)
	return out, nil
}

// runWave generates one wave. Results come back in wave order regardless of
// completion order.
func (e *Engine) runWave(ctx context.Context, gs *state.GameState, notes *state.Notes, wave []string, hints map[string]string, running string, emit func(Progress)) []Result {
	results := make([]Result, len(wave))

	var g errgroup.Group
	g.SetLimit(min(len(wave), e.maxWorkers))

	for i, name := range wave {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{Name: name, Message: fallbackLine(name, ""), Err: fmt.Errorf("panic: %v", r)}
					emit(Progress{Kind: ProgressError, Name: name, Text: results[i].Message})
				}
			}()

			res := e.speak(ctx, gs, notes, name, hints[name], running)
			results[i] = res
			if res.Err != nil {
				emit(Progress{Kind: ProgressError, Name: name, Text: res.Message})
			} else {
				emit(Progress{Kind: ProgressLine, Name: name, Text: res.Message})
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// speak generates one character's line.
func (e *Engine) speak(ctx context.Context, gs *state.GameState, notes *state.Notes, name, hint, running string) Result {
	v, err := view.Project(gs, notes, name)
	if err != nil {
		e.logger.Warn("Failed to project view", "npc", name, "error", err)
		return Result{Name: name, Err: err}
	}

	prompt, err := prompts.NewNPC(v).
		WithCharacter(e.roster.Get(name)).
		WithHint(hint).
		WithContext(running).
		Build()
	if err != nil {
		return Result{Name: name, Err: err}
	}

	raw, err := e.gen.Generate(ctx, chat.NewPrompt(prompts.SystemInstruction, prompt))
	if err != nil {
		e.logger.Warn("Generation failed", "npc", name, "error", err)
		return Result{Name: name, Message: fallbackLine(name, ""), Err: err}
	}
	raw = strings.TrimSpace(raw)

	d, ok := Extract(raw, e.extractors...)
	if ok {
		if msg := textfilter.NormalizeMessage(name, strings.TrimSpace(d.Message)); strings.TrimSpace(msg) != "" {
			return Result{Name: name, Thought: d.Thought, Message: msg}
		}
	}

	e.logger.Warn("Failed to extract decision", "npc", name, "raw", truncate(raw, 200))
	return Result{Name: name, Message: fallbackLine(name, raw), Fallback: raw, Err: ErrExtraction}
}

// fallbackLine renders raw as the character's line when it does not look
// like broken JSON, and a silent line otherwise.
func fallbackLine(name, raw string) string {
	s := textfilter.StripCodeFence(raw)
	if s == "" || strings.ContainsAny(s, "{}") {
		return textfilter.SpeakerLine(name, "……")
	}
	return textfilter.NormalizeMessage(name, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Assemble joins the player's line and each speaker's message into a scene,
// one blank line between speakers.
func Assemble(playerLine string, results []Result) string {
	var parts []string
	if playerLine != "" {
		parts = append(parts, playerLine)
	}
	for _, r := range results {
		if msg := strings.TrimSpace(r.Message); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")) + "\n"
}

type contextLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// BuildRunningContext appends the last n completed lines to prior. Lines are
// encoded as a JSON array so the raw Name「…」 markup never reaches the
// backend as free text.
func BuildRunningContext(prior string, completed []string, n int) string {
	var lines []contextLine
	for _, msg := range completed {
		for _, l := range strings.Split(msg, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, splitLine(l))
			}
		}
	}
	if len(lines) == 0 {
		return prior
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return prior
	}
	var sb strings.Builder
	if prior != "" {
		sb.WriteString(prior)
		sb.WriteString("\n\n")
	}
	sb.WriteString(prompts.RunningContextHeader)
	sb.WriteString("\n")
	sb.Write(data)
	return sb.String()
}

func splitLine(line string) contextLine {
	speaker, rest, ok := strings.Cut(line, "「")
	if !ok || speaker == "" {
		return contextLine{Text: line}
	}
	return contextLine{Speaker: speaker, Text: strings.TrimSuffix(rest, "」")}
}
