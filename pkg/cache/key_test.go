package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path without query",
			key:  Key{Path: "/ergast/f1/2021.json"},
			want: "ergast/f1/2021.json",
		},
		{
			name: "query sorted by name",
			key: Key{
				Path: "/ergast/f1/2021/5/pitstops.json",
				Query: url.Values{
					"offset": []string{"1000"},
					"limit":  []string{"1000"},
				},
			},
			want: "ergast/f1/2021/5/pitstops.json?limit=1000&offset=1000",
		},
		{
			name: "empty query",
			key:  Key{Path: "/x/", Query: url.Values{}},
			want: "x",
		},
		{
			name: "empty key",
			key:  Key{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	key := Key{
		Path:  "/ergast/f1/2019/1/results.json",
		Query: url.Values{"limit": {"1000"}, "offset": {"0"}, "z": {"1"}},
	}

	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
