package filetype

import (
	"testing"

	"github.com/local/pagedeck/internal/codec/fakecodec"
)

func TestIsPDF(t *testing.T) {
	pdf := fakecodec.Source("a.pdf", 1)
	tests := []struct {
		name     string
		declared string
		data     []byte
		want     bool
	}{
		{"pdf", "application/pdf", pdf, true},
		{"pdf with params", "application/pdf; charset=binary", pdf, true},
		{"declared text", "text/plain", pdf, false},
		{"lying declaration", "application/pdf", []byte("just some text"), false},
		{"empty declaration", "", pdf, false},
		{"png bytes", "application/pdf", []byte("\x89PNG\r\n\x1a\n0000"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDF(tt.declared, tt.data); got != tt.want {
				t.Errorf("IsPDF(%q) = %v, want %v", tt.declared, got, tt.want)
			}
		})
	}
}

func TestAccept(t *testing.T) {
	uploads := []Upload{
		{Name: "b.pdf", MediaType: "application/pdf", Data: fakecodec.Source("b.pdf", 2)},
		{Name: "notes.txt", MediaType: "text/plain", Data: []byte("hello")},
		{Name: "dir/a.pdf", MediaType: "application/pdf", Data: fakecodec.Source("a.pdf", 1)},
		{Name: "b.pdf", MediaType: "application/pdf", Data: fakecodec.Source("b.pdf", 5)},
		{Name: "", MediaType: "application/pdf", Data: fakecodec.Source("x", 1)},
	}
	docs, rejected := Accept(uploads)

	if len(docs) != 2 || docs[0].Name != "b.pdf" || docs[1].Name != "a.pdf" {
		t.Fatalf("accepted = %+v", docs)
	}
	if docs[0].Size != int64(len(uploads[0].Data)) {
		t.Errorf("first b.pdf should win, size = %d", docs[0].Size)
	}
	wantReasons := []string{"not a PDF document", "duplicate file name", "missing file name"}
	if len(rejected) != len(wantReasons) {
		t.Fatalf("rejected = %+v", rejected)
	}
	for i, r := range rejected {
		if r.Reason != wantReasons[i] {
			t.Errorf("rejected[%d] = %+v, want reason %q", i, r, wantReasons[i])
		}
	}
}

func TestAcceptNothing(t *testing.T) {
	docs, rejected := Accept(nil)
	if len(docs) != 0 || len(rejected) != 0 {
		t.Errorf("Accept(nil) = %v, %v", docs, rejected)
	}
}
