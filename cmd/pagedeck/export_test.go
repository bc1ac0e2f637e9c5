package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/thumbnail"
)

func TestParseOrders(t *testing.T) {
	got, err := parseOrders([]string{"a.pdf=3,1,2", " 2 , 1"})
	if err != nil {
		t.Fatalf("parseOrders: %v", err)
	}
	want := map[string][]int{"a.pdf": {3, 1, 2}, "": {2, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("orders = %v, want %v", got, want)
	}

	for _, bad := range [][]string{{"a.pdf=x"}, {"0"}, {"1", "2"}} {
		if _, err := parseOrders(bad); err == nil {
			t.Errorf("parseOrders(%q) accepted", bad)
		}
	}
}

func TestPrintReport(t *testing.T) {
	start := time.Now()
	r := &export.Report{
		Mode:     export.ModeArchive,
		Outputs:  []export.Output{{Document: "a.pdf", Name: "modified-a.pdf", Pages: 2, Size: 10}},
		Archive:  &export.Output{Name: "processed-1-documents.zip", Size: 20},
		Failures: []export.Failure{{Document: "b.pdf", Kind: "decode", Message: "bad"}},
		Started:  start,
		Finished: start.Add(time.Second),
	}
	var buf bytes.Buffer
	printReport(&buf, r, thumbnail.Progress{Failed: 1})
	out := buf.String()
	for _, want := range []string{"modified-a.pdf", "processed-1-documents.zip", "b.pdf", "decode: bad", "1 pages could not be rendered"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
