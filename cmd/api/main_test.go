package main

import (
	"reflect"
	"testing"
)

func TestSplitOrigins(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"https://app.example.com", []string{"https://app.example.com"}},
		{"https://a.example.com, https://b.example.com", []string{"https://a.example.com", "https://b.example.com"}},
		{" , https://a.example.com, ", []string{"https://a.example.com"}},
	}
	for _, tc := range cases {
		got := splitOrigins(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitOrigins(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
