package models

// Graph is one rendered chart for a dataset column. Name is the
// zero-based column index in the source file, as a string. Image is
// the SVG document bytes.
type Graph struct {
	Name  string `json:"name"`
	Image []byte `json:"image"`
}
