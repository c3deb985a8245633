package host

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/jnnngs/5250Web/internal/assets"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// Option values understood by ProcessOptions.
const (
	OptionDelete  = "4"
	OptionDisplay = "5"
)

type datasetFile struct {
	Control     string              `toml:"control"`
	Record      string              `toml:"record"`
	Title       string              `toml:"title"`
	OptionField string              `toml:"option_field"`
	Fields      []FieldDef          `toml:"fields"`
	Records     []map[string]string `toml:"records"`
}

// Dataset is an in-memory Host loaded from TOML.
type Dataset struct {
	mu      sync.RWMutex
	format  Format
	records []map[string]string
}

var validate = validator.New()

// LoadDataset reads a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// DefaultDataset returns the built-in sample.
func DefaultDataset() (*Dataset, error) {
	return ParseDataset(assets.SampleDataset())
}

// ParseDataset decodes and validates a dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	var file datasetFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	for i := range file.Fields {
		if file.Fields[i].Kind == "" {
			file.Fields[i].Kind = KindText
		}
		if file.Fields[i].Line == 0 {
			file.Fields[i].Line = 1
		}
	}
	format := Format{
		Control:     file.Control,
		Record:      file.Record,
		Title:       file.Title,
		OptionField: file.OptionField,
		Fields:      file.Fields,
	}
	if err := validate.Struct(format); err != nil {
		return nil, fmt.Errorf("invalid dataset format: %w", err)
	}
	d := &Dataset{format: format}
	for _, values := range file.Records {
		rec := make(map[string]string, len(file.Fields))
		for _, def := range file.Fields {
			v := values[def.Name]
			if def.Kind == KindCheckbox {
				v = normalizeCheckbox(v)
			}
			rec[def.Name] = v
		}
		d.records = append(d.records, rec)
	}
	return d, nil
}

// Clone returns an independent copy, so every job edits its own records.
func (d *Dataset) Clone() *Dataset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := &Dataset{format: d.format, records: make([]map[string]string, len(d.records))}
	for i, rec := range d.records {
		cp := make(map[string]string, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out.records[i] = cp
	}
	return out
}

func (d *Dataset) Format() Format {
	return d.format
}

func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func (d *Dataset) Records(from, to int) []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if to > len(d.records) {
		to = len(d.records)
	}
	if from >= to {
		return nil
	}
	out := make([]Record, 0, to-from)
	for rrn := from; rrn < to; rrn++ {
		values := make(map[string]string, len(d.records[rrn]))
		for k, v := range d.records[rrn] {
			values[k] = v
		}
		out = append(out, Record{RRN: rrn, Values: values})
	}
	return out
}

func (d *Dataset) Apply(values url.Values, window Window) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	changed := 0
	seen := make(map[string]bool)
	var firstErr error
	for name, vs := range values {
		record, field, rrn, ok := subfile.ParseFieldName(name)
		if !ok || record != d.format.Record || subfile.IsRecordNumberField(name) || len(vs) == 0 {
			continue
		}
		def, ok := d.format.Field(field)
		if !ok || !def.Input() {
			continue
		}
		if rrn >= len(d.records) {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: record %d does not exist", name, rrn)
			}
			log.Printf("Warning: dataset: ignoring %s, only %d records", name, len(d.records))
			continue
		}
		v := vs[len(vs)-1]
		if def.Kind == KindCheckbox {
			v = normalizeCheckbox(v)
			seen[subfile.FieldName(record, def.Name, rrn)] = true
		}
		if d.records[rrn][def.Name] != v {
			d.records[rrn][def.Name] = v
			changed++
		}
	}

	// A browser omits unchecked boxes; only the rendered ones can be cleared.
	if window.Valid {
		for _, def := range d.format.Fields {
			if def.Kind != KindCheckbox {
				continue
			}
			for rrn := window.First; rrn <= window.Last && rrn < len(d.records); rrn++ {
				if seen[subfile.FieldName(d.format.Record, def.Name, rrn)] {
					continue
				}
				if d.records[rrn][def.Name] != UncheckedValue {
					d.records[rrn][def.Name] = UncheckedValue
					changed++
				}
			}
		}
	}
	return changed, firstErr
}

func (d *Dataset) ProcessOptions() []string {
	opt := d.format.OptionField
	if opt == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var msgs []string
	var deleted []int
	for rrn, rec := range d.records {
		switch v := strings.TrimSpace(rec[opt]); v {
		case "":
			continue
		case OptionDelete:
			deleted = append(deleted, rrn)
		case OptionDisplay:
			msgs = append(msgs, fmt.Sprintf("Record %d: %s", rrn, describe(d.format, rec)))
		default:
			msgs = append(msgs, fmt.Sprintf("Record %d: option %q not valid", rrn, v))
		}
		rec[opt] = ""
	}
	sort.Sort(sort.Reverse(sort.IntSlice(deleted)))
	for _, rrn := range deleted {
		d.records = append(d.records[:rrn], d.records[rrn+1:]...)
	}
	if len(deleted) > 0 {
		msgs = append(msgs, fmt.Sprintf("%d record(s) deleted", len(deleted)))
	}
	return msgs
}

func describe(f Format, rec map[string]string) string {
	var parts []string
	for _, def := range f.Fields {
		if def.Name == f.OptionField {
			continue
		}
		if v := strings.TrimSpace(rec[def.Name]); v != "" {
			parts = append(parts, def.Name+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

func normalizeCheckbox(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "on", "true", "1", "checked":
		return CheckedValue
	default:
		return UncheckedValue
	}
}
