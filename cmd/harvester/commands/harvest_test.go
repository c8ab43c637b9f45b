package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = map[string]string{
	"/wiki/Category:Companies": `<html><body><div id="mw-pages"><div class="mw-category-group"><ul>
		<li><a href="/wiki/Acme" title="Acme">Acme</a></li>
		<li><a href="/wiki/Globex" title="Globex">Globex</a></li>
		<li><a href="/wiki/Gone" title="Gone">Gone</a></li>
	</ul></div></div></body></html>`,
	"/wiki/Acme": `<html><body><table class="infobox">
		<tr><th>Type</th><td>Private</td></tr>
		<tr><th>Founded</th></tr>
	</table></body></html>`,
	"/wiki/Globex": `<html><body><table class="infobox">
		<tr><th>Founded</th><td>1989</td></tr>
		<tr><th>Headquarters</th><td>Springfield, OR</td></tr>
	</table></body></html>`,
}

func newTestSite(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := testSite[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("HARVESTER_FETCH_MODE", "http")
	t.Setenv("HARVESTER_DELAY", "0s")
	t.Setenv("HARVESTER_MIN_DELAY", "0s")
	t.Setenv("HARVESTER_LOG_LEVEL", "error")
	return srv.URL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHarvestCommand_WritesCSV(t *testing.T) {
	base := newTestSite(t)
	path := filepath.Join(t.TempDir(), "companies.csv")

	_, err := execute(t, "harvest",
		"--index", base+"/wiki/Category:Companies",
		"--out", path,
		"--format", "csv",
		"--policy", "skip",
	)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Company_name,Founded,Headquarters,Type\n"+
			"Acme,,,Private\n"+
			"Globex,1989,\"Springfield, OR\",\n",
		string(got))
}

func TestLocatorsCommand(t *testing.T) {
	base := newTestSite(t)

	out, err := execute(t, "locators", "--index", base+"/wiki/Category:Companies", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, base+"/wiki/Acme")
	assert.Contains(t, out, base+"/wiki/Globex")
	assert.NotContains(t, out, base+"/wiki/Gone")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}
