package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// loadTimeout bounds WaitForLoad, in milliseconds.
const loadTimeout = 10000

// InstallBrowsers downloads the Playwright driver and Chromium.
func InstallBrowsers() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

// LaunchPlaywright starts Chromium through Playwright and opens one page.
func LaunchPlaywright(ctx context.Context, headless bool) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}
	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not open page: %w", err)
	}
	return &pwBrowser{pw: pw, browser: browser, page: &pwPage{page: page}}, nil
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    *pwPage
}

func (b *pwBrowser) Page() Page { return b.page }

func (b *pwBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle})
	return err
}

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) Elements(selector string) ([]Element, error) {
	locators, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	elements := make([]Element, len(locators))
	for i, l := range locators {
		elements[i] = pwElement{locator: l}
	}
	return elements, nil
}

func (p *pwPage) WaitForLoad() error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(loadTimeout),
	})
}

type pwElement struct {
	locator playwright.Locator
}

func (e pwElement) Visible() bool {
	visible, err := e.locator.IsVisible()
	return err == nil && visible
}

func (e pwElement) Text() string {
	text, _ := e.locator.InnerText()
	return text
}

func (e pwElement) Attribute(name string) string {
	value, _ := e.locator.GetAttribute(name)
	return value
}

func (e pwElement) Click() error {
	// Menus live in scrolled containers; a failed scroll still allows the click.
	_ = e.locator.ScrollIntoViewIfNeeded()
	return e.locator.Click()
}

func (e pwElement) Fill(value string) error {
	_ = e.locator.ScrollIntoViewIfNeeded()
	return e.locator.Fill(value)
}

func (e pwElement) Value() (string, error) { return e.locator.InputValue() }
