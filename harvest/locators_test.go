package harvest

import (
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/dom"
	"github.com/use-agent/harvester/models"
)

func mustParse(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := dom.ParseString(markup)
	require.NoError(t, err)
	return doc
}

func TestExtractLocators_GroupThenEntryOrder(t *testing.T) {
	base, _ := url.Parse("https://en.wikipedia.org/wiki/Category:Companies")

	got, err := ExtractLocators(mustParse(t, categoryPage), base, config.DefaultLocatorRules)
	require.NoError(t, err)

	want := []models.Locator{
		{URL: "https://en.wikipedia.org/wiki/Acme", Href: "/wiki/Acme", Title: "Acme Corp"},
		{URL: "https://en.wikipedia.org/wiki/Apex", Href: "/wiki/Apex", Title: "Apex Ltd"},
		{URL: "https://other.example/Cobalt", Href: "https://other.example/Cobalt", Title: "Cobalt Inc"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("locators mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractLocators_Completeness(t *testing.T) {
	doc := mustParse(t, `<div id="mw-pages">
		<div class="mw-category-group"><ul><li><a href="/1">1</a></li><li><a href="/2">2</a></li></ul></div>
		<div class="mw-category-group"><ul><li><a href="/3">3</a></li></ul></div>
		<div class="mw-category-group"><ul><li><a href="/4">4</a></li><li><a href="/5">5</a></li><li><a href="/6">6</a></li></ul></div>
	</div>`)

	got, err := ExtractLocators(doc, nil, config.DefaultLocatorRules)
	require.NoError(t, err)
	require.Len(t, got, 6)
	for i, loc := range got {
		assert.Equal(t, string(rune('1'+i)), loc.Title)
		assert.Equal(t, loc.Href, loc.URL, "no base leaves hrefs as they are")
	}
}

func TestExtractLocators_EmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"no container", `<div id="content"><ul><li><a href="/x">x</a></li></ul></div>`},
		{"only empty groups", `<div id="mw-pages"><div class="mw-category-group"><h3>A</h3></div></div>`},
		{"empty document", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractLocators(mustParse(t, tt.markup), nil, config.DefaultLocatorRules)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestExtractLocators_ContainerWithoutGroups(t *testing.T) {
	doc := mustParse(t, `<div id="mw-pages"><ul><li><a href="/wiki/Solo" title="Solo">Solo</a></li></ul></div>`)

	got, err := ExtractLocators(doc, nil, config.DefaultLocatorRules)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Solo", got[0].Title)
}

func TestExtractLocators_CustomRules(t *testing.T) {
	doc := mustParse(t, `<table class="list">
		<tr><td><a class="name" href="/a">A</a> <a href="/edit/a">edit</a></td></tr>
		<tr><td><a class="name" href="/b">B</a></td></tr>
	</table>`)

	rules := models.LocatorRules{Container: "table.list", Entry: "tr", Link: "a.name"}
	got, err := ExtractLocators(doc, nil, rules)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/a", got[0].Href)
	assert.Equal(t, "B", got[1].Title)
}

func TestExtractLocators_InvalidSelector(t *testing.T) {
	rules := config.DefaultLocatorRules
	rules.Entry = "li["

	_, err := ExtractLocators(mustParse(t, categoryPage), nil, rules)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.AsHarvestError(err).Code)
}

func TestNextIndexPage(t *testing.T) {
	base, _ := url.Parse("https://en.wikipedia.org/wiki/Category:Companies")
	doc := mustParse(t, `<div id="mw-pages"><a href="/w/index.php?pagefrom=B">next page</a><a href="#top">top</a></div>`)

	next, ok := nextIndexPage(doc, base, dom.MustCompile(`a[href*="pagefrom"]`))
	assert.True(t, ok)
	assert.Equal(t, "https://en.wikipedia.org/w/index.php?pagefrom=B", next)

	_, ok = nextIndexPage(doc, base, dom.MustCompile(`a[href^="#"]`))
	assert.False(t, ok, "fragment links are not pages")

	_, ok = nextIndexPage(doc, base, dom.Selector{})
	assert.False(t, ok)
}
