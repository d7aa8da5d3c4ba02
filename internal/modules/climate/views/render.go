package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates/*.html
var viewsFS embed.FS

var indexTmpl *template.Template

// loadTemplatesFromFS is split out so tests can point it at a broken fs.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	indexTmpl, err = template.ParseFS(sub, "*.html")
	return err
}

// LoadTemplates parses the embedded templates. Call it during startup; if it
// returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

const DateHint = "Please use YYYY-mm-dd for both start and end date format to access the data"

// IndexData is the view model of the route directory.
type IndexData struct {
	Routes []string
	Hint   string
}

func RenderIndex(w io.Writer, data *IndexData) error {
	if indexTmpl == nil {
		return errors.New("index template not loaded: call views.LoadTemplates during startup")
	}
	return indexTmpl.ExecuteTemplate(w, "index.html", data)
}
