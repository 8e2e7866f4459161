package pages_test

import (
	"testing"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/pages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := pages.NewRenderer()
	product := &models.Product{Title: "Widget <b>", Description: "A widget", Price: 1505, Artifacts: []string{"a1.epub"}}

	page, err := r.Render("generic", product)
	require.NoError(t, err)
	assert.Contains(t, string(page), "15.05")
	assert.Contains(t, string(page), "Widget &lt;b&gt;")

	page, err = r.Render("ebook", product)
	require.NoError(t, err)
	assert.Contains(t, string(page), `/artifacts/a1.epub`)

	_, err = r.Render("menu", product)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
