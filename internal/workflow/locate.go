package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no candidate selector yields a visible element.
var ErrNotFound = errors.New("element not found")

// pollInterval is the delay between two lookups of WaitFirstVisible.
const pollInterval = 250 * time.Millisecond

// Match filters candidate elements; nil accepts every visible element.
type Match func(Element) bool

// TextContains matches elements whose text contains s. An empty s matches all.
func TextContains(s string) Match {
	return func(e Element) bool {
		return s == "" || strings.Contains(strings.TrimSpace(e.Text()), s)
	}
}

// FirstVisible tries selectors in order and returns the first visible element
// accepted by match, with the selector that produced it. Selectors that fail
// to resolve are skipped.
func FirstVisible(page Page, selectors []string, match Match) (Element, string, error) {
	for _, selector := range selectors {
		elements, err := page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if !el.Visible() {
				continue
			}
			if match != nil && !match(el) {
				continue
			}
			return el, selector, nil
		}
	}
	return nil, "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(selectors, ", "))
}

// WaitFirstVisible polls FirstVisible until it succeeds, timeout elapses or
// ctx is done. A non-positive timeout performs a single lookup.
func WaitFirstVisible(ctx context.Context, page Page, selectors []string, match Match, timeout time.Duration) (Element, string, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, selector, err := FirstVisible(page, selectors, match)
		if err == nil {
			return el, selector, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, "", err
		}
		if err := sleep(ctx, min(pollInterval, remaining)); err != nil {
			return nil, "", err
		}
	}
}

// AnyVisible reports whether any selector resolves to a visible element.
func AnyVisible(page Page, selectors []string) bool {
	_, _, err := FirstVisible(page, selectors, nil)
	return err == nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
