package pagerange

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []int
	}{
		{"single", "4", []int{4}},
		{"list", "1,3,5", []int{1, 3, 5}},
		{"range", "2-4", []int{2, 3, 4}},
		{"mixed", "1,3-4", []int{1, 3, 4}},
		{"malformed term skipped", "1,x,3-4", []int{1, 3, 4}},
		{"whitespace", " 1 , 3 - 4 ", []int{1, 3, 4}},
		{"overlap", "1-3,2-5", []int{1, 2, 3, 4, 5}},
		{"reversed range empty", "5-2", []int{}},
		{"reversed with others", "5-2,7", []int{7}},
		{"zero and negative", "0,-1,2", []int{2}},
		{"empty terms", "1,,3,", []int{1, 3}},
		{"open range", "3-,-4,6", []int{6}},
		{"empty", "", []int{}},
		{"blank", "   ", []int{}},
		{"garbage", "abc", []int{}},
		{"degenerate range", "3-3", []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.expr).Pages()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParse_SpanCap(t *testing.T) {
	s := Parse("1-999999999,5")
	if s.Len() != 1 || !s.Contains(5) {
		t.Fatalf("expected oversized range to be skipped, got %v", s.Pages())
	}
}

func TestSetString(t *testing.T) {
	s := Parse("9,1,2,3,5,6")
	if got := s.String(); got != "1-3,5-6,9" {
		t.Errorf("String() = %q", got)
	}
	if got := (Set{}).String(); got != "" {
		t.Errorf("empty String() = %q", got)
	}
}

func TestOf(t *testing.T) {
	s := Of(3, 0, -2, 3, 1)
	if !reflect.DeepEqual(s.Pages(), []int{1, 3}) {
		t.Errorf("Of = %v", s.Pages())
	}
	var zero Set
	if zero.Contains(1) || zero.Len() != 0 {
		t.Error("zero Set should be empty")
	}
}
