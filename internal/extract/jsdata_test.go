package extract

import "testing"

func TestExtractPushObjects(t *testing.T) {
	src := `
		series.push({id: 101, name: 'Fixed Setup Series', url: "https://example.test/s/101"});
		series.push({id: 102, name: 'Open Setup Series', description: 'trailing comma test',});
		unrelated.push({id: 999});
	`
	objs := extractPushObjects(src, "series")
	if len(objs) != 2 {
		t.Fatalf("extractPushObjects returned %d objects, want 2", len(objs))
	}
	id, ok := asInt(objs[0], "id")
	if !ok || id != 101 {
		t.Errorf("objs[0][id] = %v (%v), want 101", id, ok)
	}
	name, ok := asString(objs[0], "name")
	if !ok || name != "Fixed Setup Series" {
		t.Errorf("objs[0][name] = %q (%v), want %q", name, ok, "Fixed Setup Series")
	}
	if _, ok := asString(objs[1], "description"); !ok {
		t.Errorf("objs[1][description] missing, trailing comma should not break parse")
	}
}

func TestExtractJSArray(t *testing.T) {
	src := `
		var seasons = [
			{id: 1, name: '2025 Season 1'},
			{id: 2, name: "2025 Season 2"},
		];
	`
	arr := extractJSArray(src, "seasons")
	if len(arr) != 2 {
		t.Fatalf("extractJSArray returned %d entries, want 2", len(arr))
	}
	id, ok := asInt(arr[1], "id")
	if !ok || id != 2 {
		t.Errorf("arr[1][id] = %v (%v), want 2", id, ok)
	}
}

func TestExtractJSArrayMissing(t *testing.T) {
	if arr := extractJSArray("var other = [1,2,3];", "seasons"); arr != nil {
		t.Errorf("extractJSArray with no match = %v, want nil", arr)
	}
}

func TestBalancedSpanIgnoresBracesInStrings(t *testing.T) {
	src := `{"text": "a } b { c", "n": 1}`
	span, ok := balancedSpan(src, 0, '{', '}')
	if !ok {
		t.Fatal("balancedSpan failed to find a match")
	}
	if span != src {
		t.Errorf("balancedSpan = %q, want %q", span, src)
	}
}

func TestAsStringAndAsInt(t *testing.T) {
	m := map[string]any{"name": "x", "count": float64(5), "raw_count": "7", "nothing": nil}
	if v, ok := asString(m, "name"); !ok || v != "x" {
		t.Errorf("asString(name) = %q, %v", v, ok)
	}
	if _, ok := asString(m, "missing"); ok {
		t.Error("asString(missing) should report not-ok")
	}
	if v, ok := asInt(m, "count"); !ok || v != 5 {
		t.Errorf("asInt(count) = %d, %v", v, ok)
	}
	if v, ok := asInt(m, "raw_count"); !ok || v != 7 {
		t.Errorf("asInt(raw_count) = %d, %v", v, ok)
	}
	if _, ok := asInt(m, "nothing"); ok {
		t.Error("asInt(nothing) should report not-ok for a nil value")
	}
}
