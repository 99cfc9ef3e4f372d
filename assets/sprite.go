// Package assets loads the effect's SVG sprites and parses its CSS gradients.
package assets

import (
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
)

// Sprite is a fetched and parsed SVG asset.
type Sprite struct {
	URL     string
	Name    string  // base name without extension
	Markup  string  // raw document, for rasterizers
	Inner   string  // children of the root <svg>, for embedding
	ViewBox ViewBox // root viewBox, or width/height when absent
}

// ViewBox is an SVG user-space rectangle.
type ViewBox struct {
	X, Y, W, H float64
}

// String formats the box as an SVG viewBox attribute value.
func (v ViewBox) String() string {
	return fmt.Sprintf("%g %g %g %g", v.X, v.Y, v.W, v.H)
}

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	Inner   string   `xml:",innerxml"`
}

// ParseSprite validates SVG markup and extracts what surfaces need.
// oksvg resolves the viewBox; encoding/xml captures the root's children.
func ParseSprite(url, markup string) (*Sprite, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(markup), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parsing svg %s: %w", url, err)
	}

	var root svgRoot
	if err := xml.Unmarshal([]byte(markup), &root); err != nil {
		return nil, fmt.Errorf("reading svg root %s: %w", url, err)
	}

	vb := ViewBox{X: icon.ViewBox.X, Y: icon.ViewBox.Y, W: icon.ViewBox.W, H: icon.ViewBox.H}
	if vb.W <= 0 || vb.H <= 0 {
		vb = ViewBox{W: pixels(root.Width), H: pixels(root.Height)}
	}
	if vb.W <= 0 || vb.H <= 0 {
		return nil, fmt.Errorf("svg %s: empty viewBox", url)
	}

	name := path.Base(url)
	name = strings.TrimSuffix(name, path.Ext(name))

	return &Sprite{
		URL:     url,
		Name:    name,
		Markup:  markup,
		Inner:   strings.TrimSpace(root.Inner),
		ViewBox: vb,
	}, nil
}

// pixels parses a width/height attribute such as "24" or "24px".
func pixels(attr string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(attr), "px"), 64)
	if err != nil {
		return 0
	}
	return v
}
