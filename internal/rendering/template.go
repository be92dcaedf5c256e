package rendering

import (
	"embed"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/document.tex.tmpl
var templateFS embed.FS

const documentTemplate = "templates/document.tex.tmpl"

// DocumentData is passed to the document template
type DocumentData struct {
	Heading
	Body string
}

var (
	docTmpl     *template.Template
	docTmplErr  error
	docTmplOnce sync.Once
)

// parseTemplate parses the embedded document template once
func parseTemplate() (*template.Template, error) {
	docTmplOnce.Do(func() {
		content, err := templateFS.ReadFile(documentTemplate)
		if err != nil {
			docTmplErr = &TemplateError{Message: "template file not found: " + documentTemplate, Cause: err}
			return
		}
		docTmpl, err = template.New("document").Funcs(template.FuncMap{
			"escape": EscapeLaTeX,
		}).Parse(string(content))
		if err != nil {
			docTmplErr = &TemplateError{Message: "failed to parse template", Cause: err}
		}
	})
	return docTmpl, docTmplErr
}

// WrapDocument places an assembled body inside the full LaTeX document.
// Title and company are escaped; the body is inserted verbatim.
func WrapDocument(data DocumentData) (string, error) {
	tmpl, err := parseTemplate()
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return out.String(), nil
}
