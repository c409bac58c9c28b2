package selection_test

import (
	"slices"
	"testing"

	"hookreel/internal/selection"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		text    string
		ok      bool
		skip    bool
		numbers []int
	}{
		{"1, 5, 9", true, false, []int{1, 5, 9}},
		{"1 5 9", true, false, []int{1, 5, 9}},
		{"I like 2, 3, 7 and 8", true, false, []int{2, 3, 7}},
		{"SKIP", true, true, nil},
		{"Cancel this one", true, true, nil},
		{"this is off brand", true, true, nil},
		{"nope", true, true, nil},
		{"1, 2", false, false, nil},
		{"", false, false, nil},
		{"great post", false, false, nil},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			reply, ok := selection.ParseReply(tc.text)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if reply.Skip != tc.skip {
				t.Fatalf("skip = %v, want %v", reply.Skip, tc.skip)
			}
			if !slices.Equal(reply.Numbers, tc.numbers) {
				t.Fatalf("numbers = %v, want %v", reply.Numbers, tc.numbers)
			}
		})
	}
}

func TestReplyValid(t *testing.T) {
	if !(selection.Reply{Numbers: []int{1, 5, 10}}).Valid(10) {
		t.Fatal("expected 1,5,10 valid for 10 hooks")
	}
	if (selection.Reply{Numbers: []int{0, 5, 9}}).Valid(10) {
		t.Fatal("expected 0 to be invalid")
	}
	if (selection.Reply{Numbers: []int{1, 5, 11}}).Valid(10) {
		t.Fatal("expected 11 to be invalid")
	}
	if !(selection.Reply{Skip: true}).Valid(0) {
		t.Fatal("skip is always valid")
	}
}
