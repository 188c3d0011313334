package probe

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// PoC describes a reproducible curl command for a finding.
type PoC struct {
	URL         string
	HeaderName  string
	HeaderValue string
	ContentType string
	Body        string
}

const (
	getTemplate    = `curl -v {{ shellquote .URL }}`
	headerTemplate = `curl -H {{ printf "%s: %s" .HeaderName .HeaderValue | shellquote }} -v {{ shellquote .URL }}`
	postTemplate   = `curl -X POST -H {{ printf "Content-Type: %s" .ContentType | shellquote }} -d {{ .Body | replace "\n" "\\n" | shellquote }} {{ shellquote .URL }}`
)

var pocTemplates = func() *template.Template {
	funcs := sprig.TxtFuncMap()
	funcs["shellquote"] = shellQuote
	root := template.New("poc").Funcs(funcs)
	template.Must(root.New("get").Parse(getTemplate))
	template.Must(root.New("header").Parse(headerTemplate))
	template.Must(root.New("post").Parse(postTemplate))
	return root
}()

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// String renders the command. A body selects the POST form, a header name
// the header form, otherwise a plain GET.
func (p PoC) String() string {
	name := "get"
	switch {
	case p.Body != "":
		name = "post"
	case p.HeaderName != "":
		name = "header"
	}

	var b strings.Builder
	if err := pocTemplates.ExecuteTemplate(&b, name, p); err != nil {
		return "curl -v " + shellQuote(p.URL)
	}
	return b.String()
}
