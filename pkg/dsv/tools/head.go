package tools

import "github.com/shapestone/shape-dsv/pkg/dsv"

// Head forwards the first N rows. A negative N forwards all but the last -N
// rows. The header is always forwarded.
type Head struct {
	dsv.Passthrough
	N int

	ring  []dsv.Row
	start int
	count int
}

// NewHead creates a Head stage.
func NewHead(n int) *Head {
	return &Head{N: n}
}

func (h *Head) OnRow(row dsv.Row) (bool, error) {
	if h.N < 0 {
		return h.holdBack(row)
	}
	if h.N == 0 {
		return true, nil
	}
	if stop, err := h.Passthrough.OnRow(row); err != nil || stop {
		return true, err
	}
	h.count++
	return h.count >= h.N, nil
}

// holdBack keeps the last -N rows in a ring and forwards whatever falls out
// of it.
func (h *Head) holdBack(row dsv.Row) (bool, error) {
	if len(h.ring) < -h.N {
		h.ring = append(h.ring, row)
		return false, nil
	}
	oldest := h.ring[h.start]
	h.ring[h.start] = row
	h.start = (h.start + 1) % len(h.ring)
	if stop, err := h.Passthrough.OnRow(oldest); err != nil || stop {
		return true, err
	}
	return false, nil
}
