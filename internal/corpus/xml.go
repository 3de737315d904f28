package corpus

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// XMLSource streams <page> elements, each holding <id>, <title> and <text>,
// from an XML dump such as
//
//	<xml><page><id>1</id><title>A</title><text>...</text></page></xml>
type XMLSource struct {
	path string
	open func(string) (io.ReadCloser, error)
}

// NewXMLSource returns a source reading the file at path.
func NewXMLSource(path string) *XMLSource {
	return &XMLSource{
		path: path,
		open: func(p string) (io.ReadCloser, error) { return os.Open(p) },
	}
}

func (s *XMLSource) Name() string { return "xml:" + s.path }

type xmlPage struct {
	ID    string `xml:"id"`
	Title string `xml:"title"`
	Text  string `xml:"text"`
}

// Load decodes the whole file. An unreadable or malformed file fails the
// load; individual bad ids are skipped.
func (s *XMLSource) Load(ctx context.Context) (*Result, error) {
	f, err := s.open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()
	c := newCollector(s.Name())
	if err := decodeXML(ctx, f, c.add); err != nil {
		return nil, err
	}
	return c.done(), nil
}

// Records returns the file's page records without normalizing them.
func (s *XMLSource) Records(ctx context.Context) ([]Record, error) {
	f, err := s.open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()
	var recs []Record
	err = decodeXML(ctx, f, func(rec Record) { recs = append(recs, rec) })
	return recs, err
}

func decodeXML(ctx context.Context, r io.Reader, emit func(Record)) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parsing xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var p xmlPage
		if err := dec.DecodeElement(&p, &start); err != nil {
			return fmt.Errorf("parsing page element: %w", err)
		}
		emit(Record{ID: p.ID, Title: p.Title, Text: p.Text})
	}
}
