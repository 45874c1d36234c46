// Package example parses training example lists and serves examples in
// order, shuffled, or balanced between actives and decoys.
package example

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/molgrid/pkg/errors"
)

// Example is one receptor/ligand pair and its label.
type Example struct {
	Receptor string  `json:"receptor"`
	Ligand   string  `json:"ligand"`
	Label    float32 `json:"label"`
}

// Active reports whether the example counts as an active in balanced mode.
func (e Example) Active() bool { return e.Label > 0 }

// ParseList reads "label receptor ligand" lines. Blank lines and lines
// starting with '#' are skipped; extra columns are ignored. name is used in
// error details only.
func ParseList(r io.Reader, name string) ([]Example, error) {
	var out []Example
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, errors.New(errors.ErrCodeListMalformed, "expected label, receptor and ligand").
				WithDetailf("%s:%d", name, line)
		}
		label, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeListMalformed, "label is not a number").
				WithDetailf("%s:%d", name, line)
		}
		out = append(out, Example{Label: float32(label), Receptor: fields[1], Ligand: fields[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeListUnreadable, "read example list").WithDetail(name)
	}
	return out, nil
}

//Personal.AI order the ending
