// Package source loads pipeline input data from external backends: CSV
// files, SQLite databases and YAML group-constraint files. Every loader
// validates its column mapping against the actual schema once, then emits
// the fixed record shapes the pipeline operates on.
package source

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/spreadline/pkg/contextual"
	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/pipeline"
)

// ReadTopologyCSV parses interaction rows from CSV data with a header row.
// The mapping names the caller's columns; a missing weight column defaults
// every row's weight to 1.
func ReadTopologyCSV(r io.Reader, m pipeline.Mapping) ([]network.Interaction, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if err := m.ValidateTopology(header); err != nil {
		return nil, err
	}

	col := columnIndex(header)
	var rows []network.Interaction
	for i, rec := range records {
		row := network.Interaction{
			Source: rec[col[m.Source]],
			Target: rec[col[m.Target]],
			Time:   rec[col[m.Time]],
			Weight: 1,
		}
		if m.Weight != "" {
			w, err := strconv.ParseFloat(rec[col[m.Weight]], 64)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"row %d: weight %q is not a number", i+2, rec[col[m.Weight]])
			}
			row.Weight = w
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCategoriesCSV parses entity classification rows ({entity, category}
// or {entity, color} shaped, depending on the mapping).
func ReadCategoriesCSV(r io.Reader, m pipeline.Mapping) (map[string]string, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	for field, name := range map[string]string{"entity": m.Entity, "category": m.Category} {
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidMapping, "no column mapped for %s", field)
		}
		if !indexable(header, name) {
			return nil, errors.New(errors.ErrCodeMissingColumn,
				"column %q (mapped to %s) not found in header %v", name, field, header)
		}
	}

	col := columnIndex(header)
	out := make(map[string]string, len(records))
	for _, rec := range records {
		out[rec[col[m.Entity]]] = rec[col[m.Category]]
	}
	return out, nil
}

// ReadContextsCSV parses scalar magnitude rows per (entity, time).
func ReadContextsCSV(r io.Reader, m pipeline.Mapping) ([]contextual.ContextRow, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	for field, name := range map[string]string{
		"context entity": m.ContextEntity, "context time": m.ContextTime, "context value": m.ContextValue,
	} {
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidMapping, "no column mapped for %s", field)
		}
		if !indexable(header, name) {
			return nil, errors.New(errors.ErrCodeMissingColumn,
				"column %q (mapped to %s) not found in header %v", name, field, header)
		}
	}

	col := columnIndex(header)
	var rows []contextual.ContextRow
	for i, rec := range records {
		v, err := strconv.ParseFloat(rec[col[m.ContextValue]], 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"row %d: context %q is not a number", i+2, rec[col[m.ContextValue]])
		}
		rows = append(rows, contextual.ContextRow{
			Entity: rec[col[m.ContextEntity]],
			Time:   rec[col[m.ContextTime]],
			Value:  v,
		})
	}
	return rows, nil
}

// ReadProfilesCSV parses externally computed positions. A mapped but empty
// timestamp cell yields a static row.
func ReadProfilesCSV(r io.Reader, m pipeline.Mapping) ([]contextual.ProfileRow, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	for field, name := range map[string]string{"id": m.ID, "posX": m.PosX, "posY": m.PosY} {
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidMapping, "no column mapped for %s", field)
		}
		if !indexable(header, name) {
			return nil, errors.New(errors.ErrCodeMissingColumn,
				"column %q (mapped to %s) not found in header %v", name, field, header)
		}
	}
	if m.Timestamp != "" && !indexable(header, m.Timestamp) {
		return nil, errors.New(errors.ErrCodeMissingColumn,
			"column %q (mapped to timestamp) not found in header %v", m.Timestamp, header)
	}

	col := columnIndex(header)
	var rows []contextual.ProfileRow
	for i, rec := range records {
		x, errX := strconv.ParseFloat(rec[col[m.PosX]], 64)
		y, errY := strconv.ParseFloat(rec[col[m.PosY]], 64)
		if errX != nil || errY != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"row %d: position (%q, %q) is not numeric", i+2, rec[col[m.PosX]], rec[col[m.PosY]])
		}
		row := contextual.ProfileRow{Entity: rec[col[m.ID]], X: x, Y: y}
		if m.Timestamp != "" {
			row.Time = rec[col[m.Timestamp]]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// OpenTopologyCSV is a convenience wrapper reading from a file path.
func OpenTopologyCSV(path string, m pipeline.Mapping) ([]network.Interaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTopologyCSV(f, m)
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse csv")
	}
	if len(all) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "csv input has no header row")
	}
	return all[0], all[1:], nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}

func indexable(header []string, name string) bool {
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}
