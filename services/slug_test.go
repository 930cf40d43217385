package services_test

import (
	"regexp"
	"strings"
	"testing"
	"testing/quick"

	"backoffice-service/services"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Electronics & Gadgets!": "electronics-gadgets",
		"  Home   Garden  ":      "home-garden",
		"--Already-Slugged--":    "already-slugged",
		"Crème Brûlée":           "cr-me-br-l-e",
		"100% Cotton T-Shirts":   "100-cotton-t-shirts",
		"!!!":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, services.Slugify(in), "input %q", in)
	}
}

var slugShape = regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)

func TestSlugify_AlwaysURLSafe(t *testing.T) {
	prop := func(s string) bool {
		slug := services.Slugify(s)
		return slugShape.MatchString(slug) &&
			!strings.HasPrefix(slug, "-") &&
			!strings.HasSuffix(slug, "-") &&
			slug == strings.ToLower(slug)
	}
	assert.NoError(t, quick.Check(prop, &quick.Config{MaxCount: 2000}))
}
