package tools

import "github.com/shapestone/shape-dsv/pkg/dsv"

// Tac forwards the rows in reverse order once the input ends.
type Tac struct {
	dsv.Passthrough
	rows []dsv.Row
}

// NewTac creates a Tac stage.
func NewTac() *Tac {
	return &Tac{}
}

func (t *Tac) OnRow(row dsv.Row) (bool, error) {
	t.rows = append(t.rows, row)
	return false, nil
}

func (t *Tac) OnEOF() error {
	rows := t.rows
	t.rows = nil
	for i := len(rows) - 1; i >= 0; i-- {
		if stop, err := t.Passthrough.OnRow(rows[i]); err != nil || stop {
			return err
		}
	}
	return nil
}
