package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/taiga-forestry/multithreaded-search/pkg/config"
	apperrors "github.com/taiga-forestry/multithreaded-search/pkg/errors"
	"github.com/taiga-forestry/multithreaded-search/pkg/kafka"
)

const sampleXML = `<?xml version="1.0"?>
<xml>
  <page>
    <id> 1 </id>
    <title>  Heart </title>
    <text>The HEART pumps [[Blood]].</text>
  </page>
  <page>
    <id>abc</id>
    <title>Broken</title>
    <text>never indexed</text>
  </page>
  <page>
    <id>2</id>
    <title>Blood</title>
    <text></text>
  </page>
</xml>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		want    RawPage
		wantErr bool
	}{
		{"trims and lowers", Record{ID: " 7 ", Title: " Foo Bar ", Text: " X "}, RawPage{ID: 7, Title: "foo bar", Text: "x"}, false},
		{"negative id", Record{ID: "-4", Title: "t"}, RawPage{ID: -4, Title: "t"}, false},
		{"missing id", Record{Title: "t"}, RawPage{}, true},
		{"non-numeric id", Record{ID: "12a", Title: "t"}, RawPage{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.rec)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidRecord) {
					t.Fatalf("err = %v, want ErrInvalidRecord", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestXMLSourceLoad(t *testing.T) {
	src := NewXMLSource(writeFile(t, "corpus.xml", sampleXML))
	res, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	want := []RawPage{
		{ID: 1, Title: "heart", Text: "the heart pumps [[blood]]."},
		{ID: 2, Title: "blood", Text: ""},
	}
	if len(res.Pages) != len(want) {
		t.Fatalf("pages = %d, want %d", len(res.Pages), len(want))
	}
	for i := range want {
		if res.Pages[i] != want[i] {
			t.Errorf("page %d = %+v, want %+v", i, res.Pages[i], want[i])
		}
	}
}

func TestXMLSourceRecordsKeepsRawText(t *testing.T) {
	src := NewXMLSource(writeFile(t, "corpus.xml", sampleXML))
	recs, err := src.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 3 || recs[1].ID != "abc" || !strings.Contains(recs[0].Text, "HEART") {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestXMLSourceMissingFileFailsLoad(t *testing.T) {
	src := NewXMLSource(filepath.Join(t.TempDir(), "missing.xml"))
	_, err := Load(context.Background(), src, config.CorpusConfig{LoadTimeout: time.Second})
	if !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Fatalf("err = %v, want ErrCorpusLoad", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestXMLSourceMalformedFailsLoad(t *testing.T) {
	src := NewXMLSource(writeFile(t, "bad.xml", "<xml><page><id>1</id><title>x</page>"))
	_, err := Load(context.Background(), src, config.CorpusConfig{})
	if !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Fatalf("err = %v, want ErrCorpusLoad", err)
	}
}

func TestXMLSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewXMLSource(writeFile(t, "corpus.xml", sampleXML))
	if _, err := src.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type fakeDrainer struct {
	handler  kafka.MessageHandler
	messages [][2]string
	err      error
}

func (d *fakeDrainer) Drain(ctx context.Context) (int, error) {
	for _, m := range d.messages {
		if err := d.handler(ctx, []byte(m[0]), []byte(m[1])); err != nil {
			return 0, err
		}
	}
	return len(d.messages), d.err
}

func newFakeKafkaSource(messages [][2]string, err error) *KafkaSource {
	return &KafkaSource{
		topic: "corpus-pages",
		newDrain: func(h kafka.MessageHandler) Drainer {
			return &fakeDrainer{handler: h, messages: messages, err: err}
		},
	}
}

func TestKafkaSourceLoad(t *testing.T) {
	src := newFakeKafkaSource([][2]string{
		{"1", `{"id": 1, "title": "Heart", "text": "beats"}`},
		{"2", `{"id": "2", "title": "Lung", "text": "breathes"}`},
		{"3", `{"id": "x", "title": "Bad"}`},
		{"4", `not json`},
	}, nil)
	res, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Pages) != 2 || res.Skipped != 2 {
		t.Fatalf("pages = %d skipped = %d, want 2 and 2", len(res.Pages), res.Skipped)
	}
	if res.Pages[0] != (RawPage{ID: 1, Title: "heart", Text: "beats"}) {
		t.Errorf("page 0 = %+v", res.Pages[0])
	}
	if res.Pages[1].ID != 2 {
		t.Errorf("page 1 id = %d, want 2", res.Pages[1].ID)
	}
}

func TestKafkaSourceDrainError(t *testing.T) {
	src := newFakeKafkaSource(nil, errors.New("broker unavailable"))
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected drain error")
	}
}

func TestEvents(t *testing.T) {
	events := Events([]Record{{ID: "9", Title: "T", Text: "x"}})
	if len(events) != 1 || events[0].Key != "9" {
		t.Fatalf("events = %+v", events)
	}
}

func TestOpenUnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Source = "ftp"
	if _, _, err := Open(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestOpenSQLiteMissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Source = config.SourceSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "missing.db")
	_, _, err := Open(context.Background(), cfg)
	if !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Fatalf("err = %v, want ErrCorpusLoad", err)
	}
}
