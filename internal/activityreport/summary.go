package activityreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitcontributors"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
)

const (
	// NothingToReport is the summary when there are no commits and no fallback.
	NothingToReport = "No commits today; nothing to report."
	// FailureMarker prefixes the summary when the text service fails.
	FailureMarker = "[summary generation failed]"

	defaultMaxTokens = 1024
	noneListed       = "(none)"
)

// TextService completes a single system + user exchange.
type TextService interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Strategy selects how the summary is produced.
type Strategy int

const (
	// StrategyNothing returns NothingToReport without calling the service.
	StrategyNothing Strategy = iota
	// StrategyYesterday rephrases yesterday's commits into today's report.
	StrategyYesterday
	// StrategyOwn summarizes the operator's own commits.
	StrategyOwn
	// StrategyAssist describes the operator supporting the authors of other commits.
	StrategyAssist
)

func (s Strategy) String() string {
	switch s {
	case StrategyNothing:
		return "nothing"
	case StrategyYesterday:
		return "yesterday"
	case StrategyOwn:
		return "own"
	case StrategyAssist:
		return "assist"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Choose picks the strategy for the given inputs. Yesterday's commits are
// only considered when today has none.
func Choose(today []gitlogs.CommitRecord, author string, yesterday []gitlogs.CommitRecord) Strategy {
	if len(today) == 0 {
		if len(yesterday) > 0 {
			return StrategyYesterday
		}
		return StrategyNothing
	}
	if mine, _ := gitcontributors.Partition(today, author); len(mine) > 0 {
		return StrategyOwn
	}
	return StrategyAssist
}

// Prompt is the request sent to the text service for a strategy.
type Prompt struct {
	Strategy Strategy
	System   string
	User     string
}

// Summary is the outcome of Generate.
type Summary struct {
	Text     string
	Strategy Strategy
	// Failed is set when Text carries FailureMarker.
	Failed bool
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Template  config.TemplateConfig
	Style     []string
	MaxTokens int
	Logger    *slog.Logger
}

// Generator produces the daily summary through a TextService.
type Generator struct {
	service   TextService
	template  config.TemplateConfig
	style     []string
	maxTokens int
	logger    *slog.Logger
	activity  string
}

// NewGenerator creates a Generator. service may be nil, in which case every
// strategy that needs it reports a failure.
func NewGenerator(service TextService, opts GeneratorOptions) *Generator {
	g := &Generator{
		service:   service,
		template:  opts.Template,
		style:     opts.Style,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// WithActivity returns a copy of g that offers activity, a rendered list of
// hosted pull requests and issues, as extra context for today's summary.
func (g *Generator) WithActivity(activity string) *Generator {
	c := *g
	c.activity = strings.TrimSpace(activity)
	return &c
}

// Generate returns the summary for today's commits. It never returns an error:
// service failures are folded into the text behind FailureMarker.
func (g *Generator) Generate(ctx context.Context, today []gitlogs.CommitRecord, author string, yesterday []gitlogs.CommitRecord) Summary {
	prompt := g.BuildPrompt(today, author, yesterday)
	if prompt.Strategy == StrategyNothing {
		return Summary{Text: NothingToReport, Strategy: StrategyNothing}
	}

	if g.service == nil {
		return g.failed(prompt.Strategy, errors.New("no text generation service configured"))
	}

	text, err := g.service.Complete(ctx, prompt.System, prompt.User, g.maxTokens)
	if err != nil {
		return g.failed(prompt.Strategy, err)
	}
	g.logger.Debug("summary generated", "strategy", prompt.Strategy.String(), "chars", len(text))
	return Summary{Text: strings.TrimSpace(text), Strategy: prompt.Strategy}
}

func (g *Generator) failed(strategy Strategy, err error) Summary {
	g.logger.Warn("summary generation failed", "strategy", strategy.String(), "error", err)
	return Summary{
		Text:     fmt.Sprintf("%s %v", FailureMarker, err),
		Strategy: strategy,
		Failed:   true,
	}
}

// BuildPrompt constructs the prompt of the chosen strategy. For
// StrategyNothing only the Strategy field is set.
func (g *Generator) BuildPrompt(today []gitlogs.CommitRecord, author string, yesterday []gitlogs.CommitRecord) Prompt {
	strategy := Choose(today, author, yesterday)
	switch strategy {
	case StrategyYesterday:
		return Prompt{
			Strategy: strategy,
			System: g.system(
				"You are a work report assistant. The author made no commits today. " +
					"Using yesterday's commits below, write today's work summary as a natural continuation " +
					"of that work (follow-up, verification, refinement, documentation). " +
					"Rephrase creatively: do not reuse yesterday's wording or copy any commit message verbatim."),
			User: "Yesterday's commits:\n" + FormatCommits(yesterday),
		}
	case StrategyOwn:
		mine, _ := gitcontributors.Partition(today, author)
		return Prompt{
			Strategy: strategy,
			System: g.system(
				"You are a work report assistant. Polish the author's commits of today into a concise, " +
					"professional first-person work summary. Do not add a title or date."),
			User: g.withActivity("My commits today:\n" + FormatCommits(mine)),
		}
	case StrategyAssist:
		_, others := gitcontributors.Partition(today, author)
		return Prompt{
			Strategy: strategy,
			System: g.system(
				"You are a work report assistant. The author made no commits today. Based on the commits " +
					"of teammates below, write the author's work summary in a supporting role: describe in " +
					"general terms what was assisted (review, integration testing, troubleshooting, coordination). " +
					"Do not reproduce teammates' commit content verbatim, so the summary does not duplicate " +
					"their reports. Do not add a title or date."),
			User: g.withActivity("Teammates' commits today:\n" + FormatCommits(others)),
		}
	default:
		return Prompt{Strategy: StrategyNothing}
	}
}

func (g *Generator) withActivity(user string) string {
	if g.activity == "" {
		return user
	}
	return user + "\n\nPull requests and issues updated today:\n" + g.activity
}

// system appends the template instruction and style modifiers to base.
func (g *Generator) system(base string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n")
	b.WriteString(TemplateInstruction(g.template))
	for _, s := range g.style {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString("\n")
			b.WriteString(s)
		}
	}
	return b.String()
}

// TemplateInstruction describes the three-field output format to the model.
// The learning field ratio is an instruction only; nothing checks it.
func TemplateInstruction(t config.TemplateConfig) string {
	populated := int(math.Round(t.LearningRatio * 100))
	var b strings.Builder
	b.WriteString("Answer using exactly this template and nothing else:\n")
	fmt.Fprintf(&b, "%s:\n- <work item>\n", t.MorningLabel)
	fmt.Fprintf(&b, "%s:\n- <work item>\n", t.AfternoonLabel)
	fmt.Fprintf(&b, "%s: <content or %s>\n", t.LearningLabel, t.Placeholder)
	b.WriteString("Rules:\n")
	b.WriteString("- Never prefix an item with a time range such as \"09:00-12:00\".\n")
	fmt.Fprintf(&b, "- Fill \"%s\" with a concrete learning item in about %d%% of reports; otherwise (about %d%%) write exactly \"%s\".",
		t.LearningLabel, populated, 100-populated, t.Placeholder)
	return b.String()
}

// FormatCommits lists commits one per line for a prompt.
func FormatCommits(commits []gitlogs.CommitRecord) string {
	if len(commits) == 0 {
		return noneListed
	}
	lines := make([]string, 0, len(commits))
	for _, c := range commits {
		lines = append(lines, fmt.Sprintf("- [%s] %s %s: %s", c.Repository, c.Timestamp, c.Author, c.Subject))
	}
	return strings.Join(lines, "\n")
}
