package presentation

import (
	"embed"
	"fmt"
	"io"
	"io/fs"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templates embed.FS

const editorTemplate = "editor.html"

// Renderer writes the editor page. Output is autoescaped.
type Renderer struct {
	editor *pongo2.Template
}

func NewRenderer() (*Renderer, error) {
	files, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, fmt.Errorf("open embedded templates: %w", err)
	}

	set := pongo2.NewSet("questionnaire", pongo2.NewFSLoader(files))

	editor, err := set.FromFile(editorTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", editorTemplate, err)
	}

	return &Renderer{editor: editor}, nil
}

func (r *Renderer) Render(w io.Writer, view View) error {
	if err := r.editor.ExecuteWriter(pongo2.Context{"view": view}, w); err != nil {
		return fmt.Errorf("render %q: %w", editorTemplate, err)
	}
	return nil
}
