package dsv

import (
	"errors"
	"fmt"
	"io"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Document is an in-memory table: an optional header and the data rows.
//
// Build one by hand, collect a stream into it with a Collector, or convert
// it to and from a Shape AST:
//
//	doc, _ := dsv.ReadDocument(strings.NewReader("name,age\nAlice,30\n"), dsv.DefaultOptions())
//	node, _ := doc.ToAST()
type Document struct {
	header Row
	rows   []Row
}

// NewDocument creates an empty Document.
func NewDocument() *Document {
	return &Document{}
}

// SetHeader sets the header row. A nil header removes it.
func (d *Document) SetHeader(header Row) *Document {
	d.header = header
	return d
}

// AddRow appends a data row.
func (d *Document) AddRow(row Row) *Document {
	d.rows = append(d.rows, row)
	return d
}

// Header returns the header, or nil.
func (d *Document) Header() Row {
	return d.header
}

// Rows returns the data rows.
func (d *Document) Rows() []Row {
	return d.rows
}

// Len returns the number of data rows.
func (d *Document) Len() int {
	return len(d.rows)
}

// Emit replays the document into sink, following the RowSink protocol:
// the header first if there is one, then the rows until the sink stops, then
// exactly one OnEOF.
func (d *Document) Emit(sink RowSink) error {
	err := d.emit(sink)
	if eofErr := sink.OnEOF(); eofErr != nil {
		return errors.Join(err, eofErr)
	}
	return err
}

func (d *Document) emit(sink RowSink) error {
	if d.header != nil {
		if stop, err := sink.OnHeader(d.header); err != nil || stop {
			return err
		}
	}
	for _, row := range d.rows {
		if stop, err := sink.OnRow(row); err != nil || stop {
			return err
		}
	}
	return nil
}

// ToAST converts the Document to an AST ArrayDataNode with one ArrayDataNode
// per row, the header first. Positions carry the 1-based row and column.
func (d *Document) ToAST() (*ast.ArrayDataNode, error) {
	all := make([]ast.SchemaNode, 0, len(d.rows)+1)
	line := 0
	add := func(row Row) {
		line++
		fields := make([]ast.SchemaNode, len(row))
		for i, f := range row {
			fields[i] = ast.NewLiteralNode(string(f), ast.NewPosition(0, line, i+1))
		}
		all = append(all, ast.NewArrayDataNode(fields, ast.NewPosition(0, line, 1)))
	}
	if d.header != nil {
		add(d.header)
	}
	for _, row := range d.rows {
		add(row)
	}
	return ast.NewArrayDataNode(all, ast.ZeroPosition()), nil
}

// FromAST creates a Document from an AST ArrayDataNode of rows. When header
// is set the first row becomes the header.
func FromAST(node ast.SchemaNode, header bool) (*Document, error) {
	arrayNode, ok := node.(*ast.ArrayDataNode)
	if !ok {
		return nil, fmt.Errorf("dsv: expected *ast.ArrayDataNode, got %T", node)
	}

	doc := NewDocument()
	for i, elem := range arrayNode.Elements() {
		rowNode, ok := elem.(*ast.ArrayDataNode)
		if !ok {
			return nil, fmt.Errorf("dsv: expected row to be *ast.ArrayDataNode, got %T", elem)
		}

		row := make(Row, 0, rowNode.Len())
		for _, fieldNode := range rowNode.Elements() {
			lit, ok := fieldNode.(*ast.LiteralNode)
			if !ok {
				return nil, fmt.Errorf("dsv: expected field to be *ast.LiteralNode, got %T", fieldNode)
			}
			switch v := lit.Value().(type) {
			case string:
				row = append(row, []byte(v))
			case []byte:
				row = append(row, append([]byte(nil), v...))
			case nil:
				row = append(row, []byte{})
			default:
				row = append(row, []byte(fmt.Sprint(v)))
			}
		}

		if i == 0 && header {
			doc.SetHeader(row)
		} else {
			doc.AddRow(row)
		}
	}
	return doc, nil
}

// EmitAST replays an AST produced by ToAST into sink.
func EmitAST(node ast.SchemaNode, header bool, sink RowSink) error {
	doc, err := FromAST(node, header)
	if err != nil {
		return errors.Join(err, sink.OnEOF())
	}
	return doc.Emit(sink)
}

// Collector is a RowSink that gathers a stream into a Document.
type Collector struct {
	doc      *Document
	resolved ResolvedOptions
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{doc: NewDocument()}
}

// Configure implements Configurable.
func (c *Collector) Configure(r ResolvedOptions) {
	c.resolved = r
}

// Resolved returns the configuration the stream ran with.
func (c *Collector) Resolved() ResolvedOptions {
	return c.resolved
}

func (c *Collector) OnHeader(header Row) (bool, error) {
	c.doc.SetHeader(header)
	return false, nil
}

func (c *Collector) OnRow(row Row) (bool, error) {
	c.doc.AddRow(row)
	return false, nil
}

func (c *Collector) OnEOF() error {
	return nil
}

// Document returns the collected document.
func (c *Collector) Document() *Document {
	return c.doc
}

// ReadDocument reads a whole stream into a Document.
func ReadDocument(r io.Reader, opts Options) (*Document, error) {
	c := NewCollector()
	if err := NewProcessor(opts, Env{}).Process(r, c); err != nil {
		return nil, err
	}
	return c.Document(), nil
}
