package frontend

import (
	"bytes"
	"embed"
	"io"
	"io/fs"
	"path"

	"github.com/flosch/pongo2/v6"
	"github.com/m-mizutani/goerr/v2"
)

// FS embeds the page templates
//
//go:embed templates/*.html
var FS embed.FS

// Renderer renders the embedded pongo2 templates
type Renderer struct {
	set *pongo2.TemplateSet
}

// NewRenderer creates a renderer over the embedded templates
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(FS, "templates")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open embedded templates")
	}
	return &Renderer{
		set: pongo2.NewSet("ticktrack", &fsLoader{fsys: sub}),
	}, nil
}

// Render executes template name with data into w. Output is buffered so
// a template error writes nothing.
func (r *Renderer) Render(w io.Writer, name string, data map[string]any) error {
	tmpl, err := r.template(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(pongo2.Context(data), &buf); err != nil {
		return goerr.Wrap(err, "failed to render template", goerr.V("name", name))
	}
	if _, err := buf.WriteTo(w); err != nil {
		return goerr.Wrap(err, "failed to write page", goerr.V("name", name))
	}
	return nil
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	tmpl, err := r.set.FromCache(name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load template", goerr.V("name", name))
	}
	return tmpl, nil
}

// fsLoader implements pongo2.TemplateLoader over an fs.FS
type fsLoader struct {
	fsys fs.FS
}

func (l *fsLoader) Abs(base, name string) string {
	if path.IsAbs(name) {
		return path.Clean(name[1:])
	}
	if base == "" {
		return path.Clean(name)
	}
	return path.Join(path.Dir(base), name)
}

func (l *fsLoader) Get(name string) (io.Reader, error) {
	b, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}
