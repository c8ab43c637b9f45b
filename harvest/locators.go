package harvest

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/harvester/dom"
	"github.com/use-agent/harvester/models"
)

// locatorSelectors is the compiled form of models.LocatorRules.
type locatorSelectors struct {
	container dom.Selector
	group     dom.Selector
	entry     dom.Selector
	link      dom.Selector
	next      dom.Selector
}

func compileLocatorRules(r models.LocatorRules) (locatorSelectors, error) {
	var (
		s   locatorSelectors
		err error
	)
	if s.container, err = dom.Compile(r.Container); err != nil {
		return s, invalidRule("container", err)
	}
	if s.group, err = dom.CompileOptional(r.Group); err != nil {
		return s, invalidRule("group", err)
	}
	if s.entry, err = dom.Compile(r.Entry); err != nil {
		return s, invalidRule("entry", err)
	}
	if s.link, err = dom.Compile(r.Link); err != nil {
		return s, invalidRule("link", err)
	}
	if s.next, err = dom.CompileOptional(r.Next); err != nil {
		return s, invalidRule("next", err)
	}
	return s, nil
}

func invalidRule(name string, err error) error {
	return models.NewHarvestError(models.ErrCodeInvalidInput, "invalid "+name+" selector", err)
}

// ExtractLocators scans an index document for links to target pages.
//
// Every container matching rules.Container is split into groups
// (rules.Group); each group is split into entries (rules.Entry) and each
// entry yields the first link (rules.Link) it holds. Locators are returned
// in container, group, then entry order. A container in which the group
// selector matches nothing, or an empty group selector, is treated as a
// single group.
//
// Empty groups contribute nothing. Entries without a link or an href are
// skipped. A document with no matching container yields an empty slice.
// Hrefs are resolved against base when it is non-nil. The only error is an
// invalid selector.
func ExtractLocators(doc *goquery.Document, base *url.URL, rules models.LocatorRules) ([]models.Locator, error) {
	sel, err := compileLocatorRules(rules)
	if err != nil {
		return nil, err
	}
	return extractLocators(doc, base, sel), nil
}

func extractLocators(doc *goquery.Document, base *url.URL, sel locatorSelectors) []models.Locator {
	locators := []models.Locator{}

	sel.container.Find(doc.Selection).Each(func(_ int, container *goquery.Selection) {
		groups := sel.group.Find(container)
		if groups.Length() == 0 {
			groups = container
		}
		groups.Each(func(_ int, group *goquery.Selection) {
			sel.entry.Find(group).Each(func(_ int, entry *goquery.Selection) {
				loc, ok := extractLocator(entry, base, sel.link)
				if !ok {
					slog.Debug("skipping index entry without link", "entry", dom.CollapseSpace(entry.Text()))
					return
				}
				locators = append(locators, loc)
			})
		})
	})

	return locators
}

// extractLocator reads the first link of an entry.
func extractLocator(entry *goquery.Selection, base *url.URL, link dom.Selector) (models.Locator, bool) {
	a, ok := link.First(entry)
	if !ok {
		return models.Locator{}, false
	}
	href, ok := dom.Attr(a, "href")
	if !ok || href == "" {
		return models.Locator{}, false
	}

	title, ok := dom.Attr(a, "title")
	if !ok || title == "" {
		title, _ = dom.Text(a)
		title = dom.CollapseSpace(title)
	}

	return models.Locator{
		URL:   resolve(base, href),
		Href:  href,
		Title: title,
	}, true
}

// nextIndexPage returns the resolved href of the "next page" link, if any.
func nextIndexPage(doc *goquery.Document, base *url.URL, next dom.Selector) (string, bool) {
	a, ok := next.First(doc.Selection)
	if !ok {
		return "", false
	}
	href, ok := dom.Attr(a, "href")
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	return resolve(base, href), true
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
