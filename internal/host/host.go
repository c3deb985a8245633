package host

import "net/url"

// Host is the record source behind a display file: it owns the subfile
// records of one job and applies what the user submits.
type Host interface {
	Format() Format
	Len() int
	// Records returns the records in [from, to), clamped to what exists.
	Records(from, to int) []Record
	// Apply stores submitted field values. Checkboxes of records inside
	// window that are absent from values are cleared.
	Apply(values url.Values, window Window) (int, error)
	// ProcessOptions acts on the option field of every record and clears it.
	ProcessOptions() []string
}
