package activityreport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
	"github.com/Stone-IT-Cloud/dailyreport/internal/logging"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
)

type fakeService struct {
	reply string
	err   error

	calls     int
	system    string
	user      string
	maxTokens int
}

func (f *fakeService) Complete(_ context.Context, system, user string, maxTokens int) (string, error) {
	f.calls++
	f.system, f.user, f.maxTokens = system, user, maxTokens
	return f.reply, f.err
}

func testTemplate() config.TemplateConfig {
	return config.Default().SummaryTemplate
}

func newTestGenerator(svc TextService) *Generator {
	return NewGenerator(svc, GeneratorOptions{
		Template: testTemplate(),
		Style:    []string{"Keep it under 100 words."},
		Logger:   logging.Discard(),
	})
}

var (
	aliceCommit = gitlogs.CommitRecord{ShortHash: "aaaaaaa", Author: "alice", Timestamp: "2024-01-01 09:00:00", Subject: "feat: add login", Repository: "repoA"}
	bobCommit   = gitlogs.CommitRecord{ShortHash: "bbbbbbb", Author: "bob", Timestamp: "2024-01-01 10:00:00", Subject: "fix: session leak", Repository: "repoB"}
)

func TestChoose(t *testing.T) {
	today := []gitlogs.CommitRecord{aliceCommit, bobCommit}
	testCases := []struct {
		name      string
		today     []gitlogs.CommitRecord
		author    string
		yesterday []gitlogs.CommitRecord
		want      Strategy
	}{
		{name: "nothing", want: StrategyNothing},
		{name: "empty fallback", yesterday: []gitlogs.CommitRecord{}, want: StrategyNothing},
		{name: "yesterday fallback", yesterday: []gitlogs.CommitRecord{aliceCommit}, want: StrategyYesterday},
		{name: "own commits", today: today, author: "alice", want: StrategyOwn},
		{name: "fallback ignored when today has commits", today: today, author: "alice", yesterday: today, want: StrategyOwn},
		{name: "only others", today: today, author: "carol", want: StrategyAssist},
		{name: "unknown identity", today: today, author: "", want: StrategyAssist},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Choose(tc.today, tc.author, tc.yesterday))
		})
	}
}

func TestGenerateNothingToReport(t *testing.T) {
	svc := &fakeService{reply: "unused"}
	got := newTestGenerator(svc).Generate(context.Background(), nil, "alice", nil)

	assert.Equal(t, NothingToReport, got.Text)
	assert.Equal(t, StrategyNothing, got.Strategy)
	assert.False(t, got.Failed)
	assert.Zero(t, svc.calls)
}

func TestGenerateOwnCommits(t *testing.T) {
	svc := &fakeService{reply: "  Morning schedule and work:\n- login\n"}
	g := newTestGenerator(svc)

	got := g.Generate(context.Background(), []gitlogs.CommitRecord{bobCommit, aliceCommit}, "alice", nil)
	require.False(t, got.Failed)
	assert.Equal(t, StrategyOwn, got.Strategy)
	assert.Equal(t, "Morning schedule and work:\n- login", got.Text)

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, defaultMaxTokens, svc.maxTokens)
	assert.Contains(t, svc.system, "first-person")
	assert.Contains(t, svc.system, "Keep it under 100 words.")
	assert.Contains(t, svc.system, "Planned learning and progress")
	assert.Contains(t, svc.system, "about 30% of reports")
	assert.Contains(t, svc.system, "about 70%")
	assert.Contains(t, svc.system, "Never prefix an item with a time range")
	assert.Equal(t, "My commits today:\n- [repoA] 2024-01-01 09:00:00 alice: feat: add login", svc.user)
}

func TestGenerateAssist(t *testing.T) {
	svc := &fakeService{reply: "supporting"}
	got := newTestGenerator(svc).Generate(context.Background(), []gitlogs.CommitRecord{bobCommit}, "alice", nil)

	assert.Equal(t, StrategyAssist, got.Strategy)
	assert.Equal(t, "supporting", got.Text)
	assert.Contains(t, svc.system, "supporting role")
	assert.Contains(t, svc.system, "Do not reproduce teammates' commit content verbatim")
	assert.Contains(t, svc.user, "bob: fix: session leak")
}

func TestGenerateYesterdayFallback(t *testing.T) {
	svc := &fakeService{reply: "rephrased"}
	got := newTestGenerator(svc).Generate(context.Background(), nil, "alice", []gitlogs.CommitRecord{aliceCommit})

	assert.Equal(t, StrategyYesterday, got.Strategy)
	assert.Equal(t, "rephrased", got.Text)
	assert.Contains(t, svc.system, "do not reuse yesterday's wording")
	assert.Contains(t, svc.user, "Yesterday's commits:\n- [repoA]")
}

func TestGenerateServiceFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("connection refused")}
	got := newTestGenerator(svc).Generate(context.Background(), []gitlogs.CommitRecord{aliceCommit}, "alice", nil)

	assert.True(t, got.Failed)
	assert.Equal(t, FailureMarker+" connection refused", got.Text)

	noService := newTestGenerator(nil).Generate(context.Background(), []gitlogs.CommitRecord{aliceCommit}, "alice", nil)
	assert.True(t, noService.Failed)
	assert.Contains(t, noService.Text, FailureMarker)
}

func TestWithActivity(t *testing.T) {
	svc := &fakeService{reply: "ok"}
	base := newTestGenerator(svc)
	g := base.WithActivity("  PR #7 [merged] Add cache\n")

	g.Generate(context.Background(), []gitlogs.CommitRecord{aliceCommit}, "alice", nil)
	assert.Contains(t, svc.user, "Pull requests and issues updated today:\nPR #7 [merged] Add cache")

	base.Generate(context.Background(), []gitlogs.CommitRecord{aliceCommit}, "alice", nil)
	assert.NotContains(t, svc.user, "Pull requests", "WithActivity does not modify the receiver")
}

func TestFormatCommits(t *testing.T) {
	assert.Equal(t, "(none)", FormatCommits(nil))
	assert.Equal(t,
		"- [repoB] 2024-01-01 10:00:00 bob: fix: session leak\n- [repoA] 2024-01-01 09:00:00 alice: feat: add login",
		FormatCommits([]gitlogs.CommitRecord{bobCommit, aliceCommit}))
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "own", StrategyOwn.String())
	assert.Equal(t, "Strategy(42)", Strategy(42).String())
}

// Zero repositories: nothing collected, the sentinel report, and the
// nothing-to-report summary.
func TestPipelineWithoutRepositories(t *testing.T) {
	commits := gitlogs.Merge()
	assert.Empty(t, commits)
	assert.Equal(t, NoCommits, Render(commits))

	svc := &fakeService{}
	summary := newTestGenerator(svc).Generate(context.Background(), commits, "", nil)
	assert.Equal(t, NothingToReport, summary.Text)
	assert.Zero(t, svc.calls)
}
