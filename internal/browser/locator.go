package browser

// Locator is one way of finding an element on the page.
type Locator struct {
	Selector string // Selector is a CSS selector or an XPath expression.
	XPath    bool   // XPath marks Selector as an XPath expression.
}

// CSS returns a CSS selector locator.
func CSS(selector string) Locator {
	return Locator{Selector: selector}
}

// XPath returns an XPath locator.
func XPath(expr string) Locator {
	return Locator{Selector: expr, XPath: true}
}

func (l Locator) String() string {
	if l.XPath {
		return "xpath:" + l.Selector
	}
	return "css:" + l.Selector
}

// ConsentLocators find the "reject" button of the cookie consent banner, in priority order.
var ConsentLocators = []Locator{
	CSS("#bnp_btn_reject"),
	XPath(`//button[contains(text(), 'Reject') or contains(text(), 'Decline')]`),
	XPath(`//button[contains(@aria-label, 'reject') or contains(@aria-label, 'decline')]`),
}

// SearchLocators find the map search input, in priority order. The markup differs
// between locales and releases of the map site, so several shapes are tried.
var SearchLocators = []Locator{
	CSS("#searchInput"),
	CSS("[name='q']"),
	CSS("input[role='combobox']"),
	CSS("input.searchBox"),
	CSS("#maps_sb"),
	XPath(`//input[@placeholder[contains(., 'search') or contains(., 'Search')]]`),
}

// firstMatch runs strategies in order and returns the first result reported as a match.
func firstMatch[T any](strategies []func() (T, bool)) (T, bool) {
	for _, try := range strategies {
		if v, ok := try(); ok {
			return v, true
		}
	}

	var zero T
	return zero, false
}
