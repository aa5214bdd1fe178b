package tui

import (
	"reflect"
	"testing"
)

func TestWrapText(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{name: "words", text: "one two three", width: 7, want: []string{"one two", "three"}},
		{name: "wide runes", text: "食べる飲む", width: 4, want: []string{"食べ", "る飲", "む"}},
		{name: "long word", text: "abcdefgh", width: 3, want: []string{"abc", "def", "gh"}},
		{name: "newline", text: "a b\nc", width: 10, want: []string{"a b", "c"}},
		{name: "no width", text: "one two", width: 0, want: []string{"one two"}},
		{name: "extra spaces", text: "  one   two ", width: 4, want: []string{"one", "two"}},
		{name: "empty", text: "", width: 5, want: []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := wrapText(tc.text, tc.width)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("wrapText(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
			}
		})
	}
}

func TestWrapTextFitsWidth(t *testing.T) {
	text := "ăn cơm 食べる to eat a meal, usually rice"
	for _, line := range wrapText(text, 9) {
		if w := widthOf(toCells(line)); w > 9 {
			t.Fatalf("line %q is %d columns wide", line, w)
		}
	}
}
