package export

// Table is one titled grid of cells. Every row has len(Headers) cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Shaded marks rows rendered with a background fill, keyed by row index.
	Shaded map[int]bool
}

// Document is a printable collection of tables.
type Document struct {
	Title    string
	Subtitle string
	Tables   []Table
}
