package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/catalogo"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/field"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
catalog:
  id: cli
indexes:
  - id: portal_type
    type: FieldIndex
  - id: subject
    type: KeywordIndex
  - id: created
    type: DateIndex
columns:
  - name: title
blobstore:
  type: local
  local:
    root: %s
logging:
  level: error
`, filepath.Join(dir, "blobs"))
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

const objects = `{"uid": "/a", "portal_type": "Document", "subject": ["go"], "created": "2024-01-03T00:00:00Z", "title": "A"}
{"uid": "/b", "portal_type": "Event", "subject": ["go", "search"], "created": "2024-01-01T00:00:00Z", "title": "B"}
{"uid": "/c", "portal_type": "Document", "subject": ["search"], "created": "2024-01-02T00:00:00Z", "title": "C"}
`

func decodeHits(t *testing.T, out string) []hit {
	t.Helper()
	var hits []hit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var h hit
		require.NoError(t, gojson.Unmarshal([]byte(line), &h))
		hits = append(hits, h)
	}
	return hits
}

func TestCLI_IndexSearch(t *testing.T) {
	cfg := writeCatalogFile(t)

	out, err := run(t, objects, "index", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "catalogued 3 objects, 3 in catalog")

	out, err = run(t, "", "search", "-c", cfg, `{"portal_type": "Document", "sort_on": "created", "sort_order": "reverse"}`)
	require.NoError(t, err)
	hits := decodeHits(t, out)
	require.Len(t, hits, 2)
	assert.Equal(t, "/a", hits[0].UID)
	assert.Equal(t, "/c", hits[1].UID)
	assert.Equal(t, "A", hits[0].Data["title"])

	_, err = run(t, "", "remove", "-c", cfg, "/a")
	require.NoError(t, err)

	out, err = run(t, "", "search", "-c", cfg, `{"subject": "go"}`)
	require.NoError(t, err)
	hits = decodeHits(t, out)
	require.Len(t, hits, 1)
	assert.Equal(t, "/b", hits[0].UID)

	out, err = run(t, "", "plan", "dump", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "cli:")
}

func TestCLI_Errors(t *testing.T) {
	cfg := writeCatalogFile(t)

	_, err := run(t, `{"portal_type": "Document"}`+"\n", "index", "-c", cfg)
	assert.ErrorContains(t, err, `missing string attribute "uid"`)

	_, err = run(t, "", "search", "-c", cfg, `{not json`)
	assert.Error(t, err)

	_, err = run(t, "", "search", "-c", cfg, `{"sort_on": "title"}`)
	assert.ErrorIs(t, err, catalogo.ErrConfiguration)

	_, err = run(t, "", "search", "-c", filepath.Join(t.TempDir(), "missing.yaml"), `{}`)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	ctx := t.Context()
	c := catalogo.New(catalogo.WithID("http"))
	require.NoError(t, c.AddIndex(field.New("portal_type", nil, nil)))
	for i, pt := range []string{"Document", "Event", "Document"} {
		_, err := c.CatalogObject(ctx, index.Record{"portal_type": pt}, fmt.Sprintf("/%d", i))
		require.NoError(t, err)
	}

	srv := httptest.NewServer(newHandler(c, prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/search", "application/json", strings.NewReader(`{"portal_type": "Document"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sr searchResponse
	require.NoError(t, gojson.NewDecoder(resp.Body).Decode(&sr))
	assert.Equal(t, 2, sr.Total)
	assert.Len(t, sr.Hits, 2)

	resp2, err := http.Post(srv.URL+"/search", "application/json", strings.NewReader(`{"sort_on": "missing"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/indexes")
	require.NoError(t, err)
	defer resp3.Body.Close()
	var infos []indexInfo
	require.NoError(t, gojson.NewDecoder(resp3.Body).Decode(&infos))
	assert.Equal(t, []indexInfo{{Name: "portal_type", Type: field.MetaType, Objects: 3, Distinct: 2}}, infos)

	resp4, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp4.Body.Close()
	assert.Equal(t, http.StatusOK, resp4.StatusCode)
}
