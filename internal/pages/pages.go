// Package pages renders product pages. Each template type is an html/template; unknown
// types are reported as not found so callers can fall back to the generic page.
package pages

import (
	"bytes"
	"fmt"
	"html/template"

	"storefront/internal/errs"
	"storefront/internal/models"
)

const genericPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Image}}<img src="/images/{{.Image}}" alt="{{.Title}}">{{end}}
<p>{{.Description}}</p>
<p class="price" data-price="{{.Price}}">{{price .Price}}</p>
</body>
</html>
`

const ebookPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Image}}<img src="/images/{{.Image}}" alt="cover">{{end}}
<p>{{.Description}}</p>
<p class="price" data-price="{{.Price}}">{{price .Price}}</p>
{{with .PrimaryArtifact}}<a class="download" href="/artifacts/{{.}}">Download</a>{{end}}
</body>
</html>
`

// Renderer renders products with a fixed set of templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() *Renderer {
	funcs := template.FuncMap{"price": formatPrice}
	return &Renderer{
		templates: map[string]*template.Template{
			"generic": template.Must(template.New("generic").Funcs(funcs).Parse(genericPage)),
			"ebook":   template.Must(template.New("ebook").Funcs(funcs).Parse(ebookPage)),
		},
	}
}

// Render executes the template named templateType for product.
func (r *Renderer) Render(templateType string, product *models.Product) ([]byte, error) {
	tmpl, ok := r.templates[templateType]
	if !ok {
		return nil, fmt.Errorf("page template %q: %w", templateType, errs.ErrNotFound)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, product); err != nil {
		return nil, fmt.Errorf("failed to render %s page: %w", templateType, err)
	}
	return buf.Bytes(), nil
}

func formatPrice(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
