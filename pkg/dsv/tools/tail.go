package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

// Tail forwards the last N rows, or with From set every row starting at row
// N. The header is always forwarded.
type Tail struct {
	dsv.Passthrough
	N    int
	From bool

	ring  []dsv.Row
	start int
	count int
}

// NewTail creates a Tail stage that forwards the last n rows.
func NewTail(n int) *Tail {
	return &Tail{N: n}
}

// ParseTail parses a count in the tail(1) form: "N" for the last N rows or
// "+N" for every row from the Nth on.
func ParseTail(s string) (*Tail, error) {
	from := strings.HasPrefix(s, "+")
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("tools: invalid number of rows %q", s)
	}
	return &Tail{N: n, From: from}, nil
}

func (t *Tail) OnRow(row dsv.Row) (bool, error) {
	if t.From {
		t.count++
		if t.count < t.N {
			return false, nil
		}
		return t.Passthrough.OnRow(row)
	}
	if t.N <= 0 {
		return false, nil
	}
	if len(t.ring) < t.N {
		t.ring = append(t.ring, row)
		return false, nil
	}
	t.ring[t.start] = row
	t.start = (t.start + 1) % t.N
	return false, nil
}

// OnEOF forwards the buffered rows, oldest first.
func (t *Tail) OnEOF() error {
	for i := range t.ring {
		row := t.ring[(t.start+i)%len(t.ring)]
		if stop, err := t.Passthrough.OnRow(row); err != nil || stop {
			return err
		}
	}
	t.ring = nil
	return nil
}
