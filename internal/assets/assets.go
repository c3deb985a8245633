// Package assets holds files compiled into the binaries.
package assets

import _ "embed"

//go:embed sample.toml
var sampleDataset []byte

//go:embed style.css
var stylesheet []byte

// SampleDataset returns the built-in open-orders dataset.
func SampleDataset() []byte {
	return sampleDataset
}

// Stylesheet returns the page stylesheet.
func Stylesheet() []byte {
	return stylesheet
}
