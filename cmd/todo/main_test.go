package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"todo"},
			want: []string{"todo"},
		},
		{
			name: "direct id first token",
			in:   []string{"todo", "3"},
			want: []string{"todo", "show", "3"},
		},
		{
			name: "hash id",
			in:   []string{"todo", "#12"},
			want: []string{"todo", "show", "#12"},
		},
		{
			name: "direct id after value flag",
			in:   []string{"todo", "--dir", "./tmp-data", "3"},
			want: []string{"todo", "--dir", "./tmp-data", "show", "3"},
		},
		{
			name: "direct id after equals flag",
			in:   []string{"todo", "--format=edn", "3"},
			want: []string{"todo", "--format=edn", "show", "3"},
		},
		{
			name: "direct id after bool flag",
			in:   []string{"todo", "--pretty", "3"},
			want: []string{"todo", "--pretty", "show", "3"},
		},
		{
			name: "direct id after double dash",
			in:   []string{"todo", "--backend", "sqlite", "--", "3"},
			want: []string{"todo", "--backend", "sqlite", "--", "show", "3"},
		},
		{
			name: "numeric flag value is not an id",
			in:   []string{"todo", "--dir", "42"},
			want: []string{"todo", "--dir", "42"},
		},
		{
			name: "zero is not an id",
			in:   []string{"todo", "0"},
			want: []string{"todo", "0"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"todo", "toggle", "3"},
			want: []string{"todo", "toggle", "3"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"todo", "wat"},
			want: []string{"todo", "wat"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
