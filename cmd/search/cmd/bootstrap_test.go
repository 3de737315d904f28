package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taiga-forestry/multithreaded-search/internal/repl"
	"github.com/taiga-forestry/multithreaded-search/pkg/config"
)

const corpusXML = `<?xml version="1.0"?>
<xml>
  <page><id>0</id><title>Heart</title><text>The heart pumps blood. [[Blood]]</text></page>
  <page><id>1</id><title>Blood</title><text>Blood carries oxygen to the [[heart|cardiac muscle]].</text></page>
  <page><id>x</id><title>Broken</title><text>not a numeric id</text></page>
  <page><id>2</id><title>Lung</title><text>Lungs exchange oxygen. [[Category:Organs]]</text></page>
</xml>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.xml")
	if err := os.WriteFile(path, []byte(corpusXML), 0o644); err != nil {
		t.Fatal(err)
	}
	c := config.Default()
	c.Corpus.Path = path
	return c
}

func TestBootstrapBuildsAndAnswers(t *testing.T) {
	ctx := context.Background()
	a, err := bootstrap(ctx, testConfig(t), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()
	if a.service.Ready() {
		t.Fatal("service ready before build")
	}
	if err := a.build(ctx); err != nil {
		t.Fatal(err)
	}

	st, err := a.service.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 3 {
		t.Errorf("documents = %d, want 3 (non-numeric id skipped)", st.Documents)
	}

	var out bytes.Buffer
	in := strings.NewReader("oxygen\n:quit\n")
	if err := repl.New(a.service, 10, true).Run(ctx, in, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1: ") || !strings.Contains(out.String(), "2: ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestBuildMissingCorpus(t *testing.T) {
	c := config.Default()
	c.Corpus.Path = filepath.Join(t.TempDir(), "missing.xml")
	a, err := bootstrap(context.Background(), c, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()
	if err := a.build(context.Background()); err == nil {
		t.Fatal("expected error for missing corpus")
	}
}
