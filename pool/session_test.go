package pool

import (
	"reflect"
	"testing"
)

func TestSessionTools(t *testing.T) {
	s := &Session{tools: newToolSet([]string{"c", "a", "b"})}

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(s.Tools(), want) {
		t.Fatalf("Tools() = %v, want %v", s.Tools(), want)
	}
}

func TestSessionSatisfies(t *testing.T) {
	s := &Session{tools: newToolSet([]string{"read_tasks", "send_email"})}

	cases := []struct {
		name     string
		required []string
		want     bool
	}{
		{"empty set", nil, true},
		{"subset", []string{"read_tasks"}, true},
		{"exact set", []string{"read_tasks", "send_email"}, true},
		{"missing tool", []string{"read_tasks", "delete_repo"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.satisfies(tc.required); got != tc.want {
				t.Fatalf("satisfies(%v) = %v, want %v", tc.required, got, tc.want)
			}
		})
	}
}

func TestToolSetUnion(t *testing.T) {
	set := newToolSet([]string{"a"})
	set.add([]string{"b", "a"})

	if want := []string{"a", "b"}; !reflect.DeepEqual(set.sorted(), want) {
		t.Fatalf("sorted() = %v, want %v", set.sorted(), want)
	}
}
