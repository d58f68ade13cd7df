package audit

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// pageTemplate renders the four cross-reference tables: the account
// list, group membership per user, effective permission per user, and
// the raw permission grant per user and group.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<title>Permission audit</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f0f0f0; }
td.yes { background: #d4edda; text-align: center; }
td.no { text-align: center; color: #ccc; }
</style>
</head>
<body>
<h1>Permission audit</h1>

<h2>Users</h2>
<table id="users">
<thead><tr><th>Username</th><th>Email</th><th>Name</th><th>Staff</th><th>Superuser</th><th>Last login</th></tr></thead>
<tbody>
{{- range .Users}}
<tr>
<td>{{.Username}}</td>
<td>{{.Email}}</td>
<td>{{.FirstName}} {{.LastName}}</td>
<td class="{{if .IsStaff}}yes{{else}}no{{end}}">{{if .IsStaff}}&#10003;{{end}}</td>
<td class="{{if .IsSuperuser}}yes{{else}}no{{end}}">{{if .IsSuperuser}}&#10003;{{end}}</td>
<td>{{localtime .LastLogin}}</td>
</tr>
{{- end}}
</tbody>
</table>

<h2>Groups by user</h2>
<table id="groups">
<thead><tr><th>Username</th>{{range .Groups}}<th>{{.Name}}</th>{{end}}</tr></thead>
<tbody>
{{- range $u := .Users}}
<tr>
<td>{{$u.Username}}</td>
{{- range $g := $.Groups}}
{{- if or $u.IsSuperuser ($u.InGroup $g.Name)}}
<td class="yes">&#10003;</td>
{{- else}}
<td class="no"></td>
{{- end}}
{{- end}}
</tr>
{{- end}}
</tbody>
</table>

<h2>Permissions by user</h2>
<table id="permissions">
<thead><tr><th>Username</th>{{range .Permissions}}<th>{{.Codename}}</th>{{end}}</tr></thead>
<tbody>
{{- range $u := .Users}}
<tr>
<td>{{$u.Username}}</td>
{{- range $p := $.Permissions}}
{{- if checkAccess $u $p.Codename}}
<td class="yes">&#10003;</td>
{{- else}}
<td class="no"></td>
{{- end}}
{{- end}}
</tr>
{{- end}}
</tbody>
</table>

<h2>Base permissions by user and group</h2>
<table id="base-permissions">
<thead><tr><th>Holder</th><th>Kind</th>{{range .Permissions}}<th>{{.Codename}}</th>{{end}}</tr></thead>
<tbody>
{{- range $u := .Users}}
<tr>
<td>{{$u.Username}}</td>
<td>user</td>
{{- range $p := $.Permissions}}
{{- if hasDirect $u $p.Codename}}
<td class="yes">&#10003;</td>
{{- else}}
<td class="no"></td>
{{- end}}
{{- end}}
</tr>
{{- end}}
{{- range $g := .Groups}}
<tr>
<td>{{$g.Name}}</td>
<td>group</td>
{{- range $p := $.Permissions}}
{{- if groupHas $g $p.Codename}}
<td class="yes">&#10003;</td>
{{- else}}
<td class="no"></td>
{{- end}}
{{- end}}
</tr>
{{- end}}
</tbody>
</table>

</body>
</html>
`

// Render writes the audit page for the dataset to w. Times are shown
// in loc; pass nil for the local zone.
func Render(w io.Writer, ds *Dataset, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	funcs := template.FuncMap{
		"localtime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.In(loc).Format("2006-01-02 15:04")
		},
		"checkAccess": func(u User, codename string) bool {
			return ds.CheckAccess(u, codename)
		},
		"hasDirect": func(u User, codename string) bool {
			for _, p := range u.Permissions {
				if p == codename {
					return true
				}
			}
			return false
		},
		"groupHas": func(g Group, codename string) bool {
			for _, p := range g.Permissions {
				if p == codename {
					return true
				}
			}
			return false
		},
	}

	tmpl, err := template.New("audit").Funcs(funcs).Parse(pageTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse audit template: %w", err)
	}
	if err := tmpl.Execute(w, ds); err != nil {
		return fmt.Errorf("failed to render audit page: %w", err)
	}
	return nil
}
