package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Stone-IT-Cloud/dailyreport/internal/activityreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
)

// ErrNonconforming is returned for summaries lacking one of the template fields.
var ErrNonconforming = errors.New("summary does not follow the three-field template")

// Steps of a submission, as reported by StepError.
const (
	StepOpen    = "open"
	StepLogin   = "login"
	StepMenu    = "menu"
	StepReport  = "report entry"
	StepFill    = "fill form"
	StepPublish = "publish"
)

const textareaNode = "textarea"

// StepError reports the step at which a submission stopped.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("workflow %s failed: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Result describes a submission that reached the publish button.
type Result struct {
	// Filled lists the textarea names written, sorted.
	Filled []string
	// Confirmed is set when one of the configured success texts appeared.
	Confirmed bool
	URL       string
}

// Options configures a Submitter.
type Options struct {
	Workflow config.WorkflowConfig
	Template config.TemplateConfig
	// Launch starts the browser. Defaults to LaunchPlaywright.
	Launch LaunchFunc
	Logger *slog.Logger
}

// Submitter fills and publishes the daily log form.
type Submitter struct {
	cfg    config.WorkflowConfig
	tpl    config.TemplateConfig
	launch LaunchFunc
	logger *slog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(opts Options) *Submitter {
	s := &Submitter{
		cfg:    opts.Workflow,
		tpl:    opts.Template,
		launch: opts.Launch,
		logger: opts.Logger,
	}
	if s.launch == nil {
		s.launch = LaunchPlaywright
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Submit signs in, opens the daily log form, fills it from summary and
// publishes it. When a step fails after the browser is up, the browser is left
// open for ManualWait so the operator can finish by hand, then closed.
func (s *Submitter) Submit(ctx context.Context, summary string) (*Result, error) {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return nil, &StepError{Step: StepLogin, Err: errors.New("workflow credentials are not configured")}
	}
	if !activityreport.Conforms(summary, s.tpl) {
		return nil, ErrNonconforming
	}
	sections := activityreport.ParseSummary(summary, s.tpl)

	browser, err := s.launch(ctx, s.cfg.Headless)
	if err != nil {
		return nil, &StepError{Step: StepOpen, Err: err}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			s.logger.Warn("failed to close browser", "error", err)
		}
	}()

	result, err := s.run(ctx, browser.Page(), sections)
	if err != nil {
		s.degrade(ctx, err)
		return nil, err
	}
	return result, nil
}

func (s *Submitter) run(ctx context.Context, page Page, sections activityreport.Sections) (*Result, error) {
	s.logger.Info("opening workflow login page", "url", s.cfg.URL)
	if err := page.Goto(s.cfg.URL); err != nil {
		return nil, &StepError{Step: StepOpen, Err: err}
	}
	if err := s.login(ctx, page); err != nil {
		return nil, &StepError{Step: StepLogin, Err: err}
	}
	if err := s.openReportForm(ctx, page); err != nil {
		return nil, err
	}

	filled, err := s.fill(page, sections)
	if err != nil {
		return nil, &StepError{Step: StepFill, Err: err}
	}

	confirmed, err := s.publish(ctx, page)
	if err != nil {
		return nil, &StepError{Step: StepPublish, Err: err}
	}
	return &Result{Filled: filled, Confirmed: confirmed, URL: page.URL()}, nil
}

func (s *Submitter) login(ctx context.Context, page Page) error {
	sel := s.cfg.Selectors
	username, _, err := WaitFirstVisible(ctx, page, sel.Username, nil, s.cfg.VisibleTimeout)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := username.Fill(s.cfg.Username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}

	password, _, err := FirstVisible(page, sel.Password, nil)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := password.Fill(s.cfg.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	button, _, err := FirstVisible(page, sel.LoginButton, nil)
	if err != nil {
		return fmt.Errorf("login button: %w", err)
	}
	if err := button.Click(); err != nil {
		return fmt.Errorf("failed to click login button: %w", err)
	}
	if err := sleep(ctx, s.cfg.StepWait); err != nil {
		return err
	}

	if !s.loggedIn(page) {
		return errors.New("still on the login page after submitting credentials")
	}
	s.logger.Info("signed in to workflow", "url", page.URL())
	return nil
}

// loggedIn treats the password field disappearing, or a navigation to another
// page than the login page, as a successful sign-in.
func (s *Submitter) loggedIn(page Page) bool {
	if !AnyVisible(page, s.cfg.Selectors.Password) {
		return true
	}
	return leftLoginPage(s.cfg.URL, page.URL())
}

// leftLoginPage compares host and path only, so a trailing slash or an added
// query on the login page still counts as the login page.
func leftLoginPage(loginURL, current string) bool {
	from, err := url.Parse(loginURL)
	if err != nil {
		return false
	}
	to, err := url.Parse(current)
	if err != nil {
		return false
	}
	if strings.Contains(strings.ToLower(to.Path), "/login") {
		return false
	}
	return !strings.EqualFold(from.Host, to.Host) ||
		strings.TrimRight(from.Path, "/") != strings.TrimRight(to.Path, "/")
}

func (s *Submitter) openReportForm(ctx context.Context, page Page) error {
	sel := s.cfg.Selectors

	menu, selector, err := WaitFirstVisible(ctx, page, sel.Menu, TextContains(sel.MenuText), s.cfg.VisibleTimeout)
	if err != nil {
		return &StepError{Step: StepMenu, Err: err}
	}
	s.logger.Debug("menu found", "selector", selector)
	if err := menu.Click(); err != nil {
		return &StepError{Step: StepMenu, Err: err}
	}
	if err := sleep(ctx, s.cfg.StepWait); err != nil {
		return &StepError{Step: StepMenu, Err: err}
	}

	entry, selector, err := WaitFirstVisible(ctx, page, sel.ReportEntry, nil, s.cfg.VisibleTimeout)
	if err != nil {
		return &StepError{Step: StepReport, Err: err}
	}
	s.logger.Debug("report entry found", "selector", selector)
	if err := entry.Click(); err != nil {
		return &StepError{Step: StepReport, Err: err}
	}
	if err := page.WaitForLoad(); err != nil {
		s.logger.Warn("report page did not settle", "error", err)
	}
	if sel.ReportURLPart != "" && !strings.Contains(page.URL(), sel.ReportURLPart) {
		s.logger.Warn("report page URL is unexpected", "url", page.URL(), "want", sel.ReportURLPart)
	}

	tab, _, err := WaitFirstVisible(ctx, page, sel.LogTab, nil, s.cfg.VisibleTimeout)
	if err != nil {
		s.logger.Warn("log tab not found, looking for the form on the current tab", "error", err)
		return nil
	}
	if err := tab.Click(); err != nil {
		s.logger.Warn("failed to click log tab", "error", err)
		return nil
	}
	return sleep(ctx, s.cfg.StepWait)
}

// fill writes the three sections into their named textareas and Filler into
// every other visible textarea.
func (s *Submitter) fill(page Page, sections activityreport.Sections) ([]string, error) {
	f := s.cfg.Fields
	content := map[string]string{
		f.Morning:   sections.Morning,
		f.Afternoon: sections.Afternoon,
		f.Learning:  sections.Learning,
	}

	textareas, err := page.Elements(textareaNode)
	if err != nil {
		return nil, fmt.Errorf("failed to list form fields: %w", err)
	}

	var filled []string
	found := map[string]bool{}
	for i, ta := range textareas {
		if !ta.Visible() {
			continue
		}
		name := ta.Attribute("name")
		if name == "" {
			name = ta.Attribute("id")
		}
		value, named := content[name]
		if !named {
			if f.Filler == "" {
				continue
			}
			value = f.Filler
		}
		if name == "" {
			name = fmt.Sprintf("textarea[%d]", i)
		}

		if err := fillVerified(ta, value); err != nil {
			if named {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			s.logger.Warn("failed to fill form field", "field", name, "error", err)
			continue
		}
		found[name] = named
		filled = append(filled, name)
	}

	var missing []string
	for _, name := range []string{f.Morning, f.Afternoon, f.Learning} {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: fields %s", ErrNotFound, strings.Join(missing, ", "))
	}

	sort.Strings(filled)
	s.logger.Info("form filled", "fields", len(filled))
	return filled, nil
}

func fillVerified(el Element, value string) error {
	if err := el.Fill(""); err != nil {
		return err
	}
	if err := el.Fill(value); err != nil {
		return err
	}
	got, err := el.Value()
	if err != nil {
		return err
	}
	if got != value {
		return fmt.Errorf("field holds %q after filling", got)
	}
	return nil
}

func (s *Submitter) publish(ctx context.Context, page Page) (bool, error) {
	button, _, err := WaitFirstVisible(ctx, page, s.cfg.Selectors.Publish, nil, s.cfg.VisibleTimeout)
	if err != nil {
		return false, err
	}
	if err := button.Click(); err != nil {
		return false, fmt.Errorf("failed to click publish: %w", err)
	}
	if err := sleep(ctx, s.cfg.StepWait); err != nil {
		return false, err
	}

	for _, text := range s.cfg.Selectors.SuccessText {
		elements, err := page.Elements("text=" + text)
		if err == nil && len(elements) > 0 {
			s.logger.Info("report published", "confirmation", text)
			return true, nil
		}
	}
	s.logger.Warn("publish clicked but no confirmation text appeared")
	return false, nil
}

// degrade keeps the browser open so the operator can complete the step by hand.
func (s *Submitter) degrade(ctx context.Context, cause error) {
	if s.cfg.ManualWait <= 0 {
		return
	}
	s.logger.Warn("leaving the browser open for manual completion",
		"error", cause, "wait", s.cfg.ManualWait.Round(time.Second).String())
	if err := sleep(ctx, s.cfg.ManualWait); err != nil {
		s.logger.Debug("manual wait interrupted", "error", err)
	}
}
