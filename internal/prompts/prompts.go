// Package prompts holds the embedded vision prompts. Each prompt pairs with
// a decoder in internal/contract that parses the JSON shape it requests.
package prompts

import (
	_ "embed"
)

//go:embed system.tmpl
var system string

//go:embed titleblock.tmpl
var titleBlock string

//go:embed annotations.tmpl
var annotations string

//go:embed cover.tmpl
var cover string

//go:embed hatching.tmpl
var hatching string

// System returns the shared system prompt for all page analysis calls.
func System() string { return system }

// TitleBlock returns the title-block extraction prompt.
func TitleBlock() string { return titleBlock }

// Annotations returns the spatial annotation prompt.
func Annotations() string { return annotations }

// CoverPage returns the cover-sheet prompt.
func CoverPage() string { return cover }

// Hatching returns the hatching-density prompt.
func Hatching() string { return hatching }
