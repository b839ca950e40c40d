package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates
var templateFS embed.FS

// Renderer renders page templates inside the shared layout. It implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

// SignupField describes one input of the registration form.
type SignupField struct {
	Name  string
	Label string
	Type  string
}

var signupFields = []SignupField{
	{Name: "first_name", Label: "First name", Type: "text"},
	{Name: "last_name", Label: "Last name", Type: "text"},
	{Name: "username", Label: "Username", Type: "text"},
	{Name: "email", Label: "Email address", Type: "email"},
	{Name: "password1", Label: "Password", Type: "password"},
	{Name: "password2", Label: "Password confirmation", Type: "password"},
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2 Jan 2006")
	},
	"year": func() int {
		return time.Now().Year()
	},
	"mediaURL": func(key string) string {
		return "/media/" + key
	},
	"linebreaks": func(text string) template.HTML {
		escaped := template.HTMLEscapeString(text)
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	},
	"signupFields": func() []SignupField {
		return signupFields
	},
}

// NewRenderer parses the layout, the shared includes and every page template.
// Pages are addressed by their path below templates/, e.g. "posts/index.html".
func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/includes/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	err = fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(path, "templates/")
		if d.IsDir() || !strings.HasSuffix(name, ".html") || !strings.Contains(name, "/") || strings.HasPrefix(name, "includes/") {
			return nil
		}

		page, err := layout.Clone()
		if err != nil {
			return err
		}
		if _, err := page.ParseFS(templateFS, path); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages}, nil
}

// Render executes the named page. data is usually an echo.Map.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, "base", data)
}

// Has reports whether a page template named name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
