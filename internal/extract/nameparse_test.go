package extract

import "testing"

func TestParseDriverName(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantFirst string
		wantLast  string
		wantNil   bool
	}{
		{name: "comma separated", raw: "Smith, John", wantFirst: "John", wantLast: "Smith"},
		{name: "comma with suffix on first side", raw: "Smith, John Jr.", wantFirst: "John Jr.", wantLast: "Smith"},
		{name: "whitespace separated", raw: "John Smith", wantFirst: "John", wantLast: "Smith"},
		{name: "single token", raw: "Cher", wantFirst: "Cher", wantLast: ""},
		{name: "extra whitespace", raw: "  John   Smith  ", wantFirst: "John", wantLast: "Smith"},
		{name: "empty", raw: "", wantNil: true},
		{name: "whitespace only", raw: "   ", wantNil: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, last := ParseDriverName(tc.raw)
			if tc.wantNil {
				if first != nil || last != nil {
					t.Fatalf("ParseDriverName(%q) = (%v, %v), want (nil, nil)", tc.raw, first, last)
				}
				return
			}
			if first == nil || *first != tc.wantFirst {
				t.Errorf("ParseDriverName(%q) first = %v, want %q", tc.raw, first, tc.wantFirst)
			}
			if tc.wantLast == "" {
				if last != nil {
					t.Errorf("ParseDriverName(%q) last = %v, want nil", tc.raw, last)
				}
				return
			}
			if last == nil || *last != tc.wantLast {
				t.Errorf("ParseDriverName(%q) last = %v, want %q", tc.raw, last, tc.wantLast)
			}
		})
	}
}
