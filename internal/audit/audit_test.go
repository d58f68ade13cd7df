package audit

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAccess(t *testing.T) {
	ds := &Dataset{
		Groups: []Group{
			{Name: "editors", Permissions: []string{"change_article"}},
		},
		Permissions: []Permission{
			{Codename: "change_article"},
			{Codename: "delete_article"},
		},
	}

	super := User{Username: "root", IsSuperuser: true}
	editor := User{Username: "ed", Groups: []string{"editors"}}
	direct := User{Username: "di", Permissions: []string{"delete_article"}}
	nobody := User{Username: "no"}

	assert.True(t, ds.CheckAccess(super, "delete_article"))
	assert.True(t, ds.CheckAccess(super, "does_not_exist"))
	assert.True(t, ds.CheckAccess(editor, "change_article"))
	assert.False(t, ds.CheckAccess(editor, "delete_article"))
	assert.True(t, ds.CheckAccess(direct, "delete_article"))
	assert.False(t, ds.CheckAccess(nobody, "change_article"))
}

func TestRenderEmptyDataset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &Dataset{}, time.UTC))

	html := buf.String()
	for _, id := range []string{`id="users"`, `id="groups"`, `id="permissions"`, `id="base-permissions"`} {
		assert.Contains(t, html, id)
	}
	assert.NotContains(t, html, "<td>")
}

func TestRenderSuperuserMarksAllGroups(t *testing.T) {
	ds := &Dataset{
		Users:  []User{{Username: "root", IsSuperuser: true}},
		Groups: []Group{{Name: "editors"}, {Name: "ops"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, ds, time.UTC))

	html := buf.String()
	groups := html[strings.Index(html, `id="groups"`):]
	groups = groups[:strings.Index(groups, "</table>")]
	assert.Equal(t, 2, strings.Count(groups, `class="yes"`))
}

func TestRenderEscapesRecords(t *testing.T) {
	ds := &Dataset{
		Users: []User{{Username: "<script>alert(1)</script>"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, ds, time.UTC))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: zed
    is_staff: true
  - username: amy
    groups: [editors]
groups:
  - name: editors
    permissions: [change_article]
permissions:
  - codename: change_article
    name: Can change article
`), 0o644))

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Users, 2)
	assert.Equal(t, "amy", ds.Users[0].Username, "records are sorted on load")
	assert.True(t, ds.CheckAccess(ds.Users[0], "change_article"))
}

func TestLoadDatasetMissingFile(t *testing.T) {
	ds, err := LoadDataset(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, ds.Users)
}

func TestServerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", &Dataset{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(100 * time.Millisecond) // let the listener bind
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestServerServesAuditPage(t *testing.T) {
	ds := &Dataset{Users: []User{{Username: "root", IsSuperuser: true}}}
	s := NewServer("", ds, nil)

	rec := httptest.NewRecorder()
	s.handleAdmins(rec, httptest.NewRequest(http.MethodGet, "/admins", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "root")
}
