package fakecodec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/local/pagedeck/internal/codec"
)

func TestBuilderKeepsCopyOrder(t *testing.T) {
	c := New()
	src, err := c.Open("a.pdf", Source("a.pdf", 3))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b := c.NewBuilder()
	for _, idx := range []int{2, 0} {
		if err := b.CopyPage(src, idx); err != nil {
			t.Fatalf("CopyPage(%d): %v", idx, err)
		}
	}
	if err := b.CopyPage(src, 3); !errors.Is(err, codec.ErrPageOutOfRange) {
		t.Errorf("expected ErrPageOutOfRange, got %v", err)
	}
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"a.pdf#3", "a.pdf#1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestEmptyDocumentRoundTrip(t *testing.T) {
	data, err := New().NewBuilder().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := Decode(data)
	if err != nil || len(got) != 0 {
		t.Errorf("Decode(empty) = %v, %v", got, err)
	}
}

func TestOpenRejectsForeignBytes(t *testing.T) {
	if _, err := New().Open("x", []byte("hello")); !errors.Is(err, ErrNotFake) {
		t.Errorf("expected ErrNotFake, got %v", err)
	}
}
