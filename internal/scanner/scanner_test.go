package scanner

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

var sample = base64.StdEncoding.EncodeToString(testPayload(120))

func TestLooksLikeBase64(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", sample, true},
		{"exactly 100 chars", strings.Repeat("A", 100), true},
		{"99 chars", strings.Repeat("A", 99), false},
		{"with whitespace", sample[:60] + "\n" + sample[60:], true},
		{"bad char", strings.Repeat("A", 120) + "!", false},
		{"url-safe alphabet rejected", strings.Repeat("A", 120) + "-_", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeBase64(tt.in); got != tt.want {
				t.Errorf("LooksLikeBase64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindAtAnyDepth(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"root string", sample},
		{"root sequence", []any{"short", sample}},
		{"preferred key", map[string]any{"b64_json": sample}},
		{"arbitrary key", map[string]any{"zzz_unknown": sample}},
		{"nested under preferred mapping", map[string]any{"image": map[string]any{"payload": sample}}},
		{"deep", map[string]any{
			"output": []any{
				map[string]any{"type": "message", "text": "hello"},
				map[string]any{"type": "image_generation_call", "result": map[string]any{
					"meta": []any{1.0, true, nil, map[string]any{"x": sample}},
				}},
			},
		}},
		{"typed map", map[string]string{"result": sample}},
		{"typed slice", []string{"a", "b", sample}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(tt.payload)
			if !ok {
				t.Fatal("expected a candidate")
			}
			if got != sample {
				t.Errorf("got %q, want sample", got)
			}
		})
	}
}

func TestFindNotFound(t *testing.T) {
	payloads := []any{
		nil,
		"",
		42,
		strings.Repeat("A", 99),
		map[string]any{"data": "short", "image": nil, "content": []any{}},
		[]any{map[string]any{"a": []any{"b", 1.5}}},
		map[string]any{"text": strings.Repeat("not base64! ", 20)},
		[]byte(sample),
		make(chan int),
	}
	for _, p := range payloads {
		if got, ok := Find(p); ok {
			t.Errorf("Find(%T) = %q, want not found", p, got)
		}
	}
}

type responseItem struct {
	Type   string `json:"type"`
	Result string `json:"result"`
	secret string
}

type typedResponse struct {
	ID     string          `json:"id"`
	Output []*responseItem `json:"output"`
	Skip   string          `json:"-"`
}

type mapperValue struct{ payload string }

func (m mapperValue) AsMap() map[string]any {
	return map[string]any{"image_base64": m.payload}
}

type jsonOnly struct{ v any }

func (j jsonOnly) MarshalJSON() ([]byte, error) { return json.Marshal(j.v) }

type cyclic struct {
	Next *cyclic `json:"next"`
	Name string  `json:"name"`
}

func TestFindOpaqueValues(t *testing.T) {
	t.Run("struct fields", func(t *testing.T) {
		resp := &typedResponse{ID: "resp_1", Output: []*responseItem{
			{Type: "message"},
			{Type: "image_generation_call", Result: sample, secret: "x"},
		}}
		got, ok := Find(resp)
		if !ok || got != sample {
			t.Fatalf("Find() = %q, %v", got, ok)
		}
	})

	t.Run("json tag dash is skipped", func(t *testing.T) {
		if _, ok := Find(typedResponse{Skip: sample}); ok {
			t.Error("field tagged json:\"-\" should not be visited")
		}
	})

	t.Run("mapper", func(t *testing.T) {
		got, ok := Find(map[string]any{"wrapped": mapperValue{payload: sample}})
		if !ok || got != sample {
			t.Fatalf("Find() = %q, %v", got, ok)
		}
	})

	t.Run("mapper under preferred key", func(t *testing.T) {
		got, ok := Find(map[string]any{"data": mapperValue{payload: sample}})
		if !ok || got != sample {
			t.Fatalf("Find() = %q, %v", got, ok)
		}
	})

	t.Run("self-referencing struct terminates", func(t *testing.T) {
		c := &cyclic{Name: "loop"}
		c.Next = c
		if _, ok := Find(c); ok {
			t.Error("expected not found")
		}
	})

	t.Run("nil pointer", func(t *testing.T) {
		var resp *typedResponse
		if _, ok := Find(resp); ok {
			t.Error("expected not found")
		}
	})
}

func TestNormalizeJSONRoundTrip(t *testing.T) {
	view, ok := normalize(jsonOnly{v: []any{"x"}})
	if !ok {
		t.Fatal("expected a view")
	}
	// jsonOnly is a struct, so the attribute map wins over the round-trip
	if view.kind != KindMapping {
		t.Errorf("kind = %s, want mapping", view.kind)
	}

	var ptr *int
	if _, ok := normalize(ptr); ok {
		t.Error("nil pointer should not produce a view")
	}
}

func TestFindPreferredKeyWins(t *testing.T) {
	other := base64.StdEncoding.EncodeToString(testPayload(150))
	payload := map[string]any{
		"aaa":      other,
		"b64_json": sample,
	}
	for i := 0; i < 20; i++ {
		got, ok := Find(payload)
		if !ok || got != sample {
			t.Fatalf("run %d: preferred key should win, got %q", i, got)
		}
	}
}

func TestFindIsDeterministic(t *testing.T) {
	first := base64.StdEncoding.EncodeToString(testPayload(150))
	second := base64.StdEncoding.EncodeToString(testPayload(180))
	payload := map[string]any{
		"zeta":  first,
		"alpha": second,
		"mid":   []any{map[string]any{"q": sample}},
	}

	want, ok := Find(payload)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if want != second {
		t.Errorf("sorted key order should pick alpha first")
	}
	for i := 0; i < 50; i++ {
		if got, _ := Find(payload); got != want {
			t.Fatalf("run %d: got a different candidate", i)
		}
	}
}

func TestFindDescentOrder(t *testing.T) {
	first := base64.StdEncoding.EncodeToString(testPayload(150))
	second := base64.StdEncoding.EncodeToString(testPayload(180))

	t.Run("nested mappings in sorted key order", func(t *testing.T) {
		payload := map[string]any{
			"beta":  map[string]any{"x": first},
			"alpha": map[string]any{"x": second},
		}
		if got, _ := Find(payload); got != second {
			t.Error("alpha subtree should be entered before beta")
		}
	})

	t.Run("sequence elements in index order", func(t *testing.T) {
		payload := []any{
			map[string]any{"x": first},
			map[string]any{"x": second},
		}
		if got, _ := Find(payload); got != first {
			t.Error("element 0 should be entered before element 1")
		}
	})

	t.Run("depth first", func(t *testing.T) {
		payload := map[string]any{
			"alpha": map[string]any{"deep": map[string]any{"x": first}},
			"beta":  map[string]any{"x": second},
		}
		if got, _ := Find(payload); got != first {
			t.Error("alpha subtree should be exhausted before beta")
		}
	})
}

func TestFindSelfReferencingContainers(t *testing.T) {
	m := map[string]any{"a": 1.0, "b": "short", "c": nil}
	m["self"] = m

	s := make([]any, 2)
	s[0] = s
	s[1] = map[string]any{"back": s}

	for name, payload := range map[string]any{"map": m, "slice": s} {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			if _, ok := Find(payload); ok {
				t.Error("expected not found")
			}
			if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
				t.Errorf("walk took %v, cycle was not detected", elapsed)
			}
		})
	}

	t.Run("candidate next to a cycle", func(t *testing.T) {
		loop := map[string]any{}
		loop["again"] = loop
		loop["zz"] = map[string]any{"x": sample}
		if got, ok := Find(loop); !ok || got != sample {
			t.Errorf("Find() = %q, %v", got, ok)
		}
	})
}

func TestDecode(t *testing.T) {
	want := testPayload(120)

	t.Run("standard", func(t *testing.T) {
		got, err := Decode(sample)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Error("decoded bytes differ")
		}
	})

	t.Run("whitespace and missing padding", func(t *testing.T) {
		raw := base64.RawStdEncoding.EncodeToString(testPayload(121))
		wrapped := raw[:50] + "\r\n" + raw[50:]
		got, err := Decode(wrapped)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !bytes.Equal(got, testPayload(121)) {
			t.Error("decoded bytes differ")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := Decode("  \n"); err != ErrEmptyPayload {
			t.Errorf("got %v, want ErrEmptyPayload", err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		if _, err := Decode(strings.Repeat("A", 101)); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestFindAndDecode(t *testing.T) {
	data, found, err := FindAndDecode(map[string]any{"data": []any{map[string]any{"b64_json": sample}}})
	if err != nil || !found {
		t.Fatalf("FindAndDecode: found=%v err=%v", found, err)
	}
	if !bytes.Equal(data, testPayload(120)) {
		t.Error("decoded bytes differ")
	}

	data, found, err = FindAndDecode(map[string]any{"data": "nope"})
	if found || err != nil || data != nil {
		t.Errorf("expected clean not-found, got found=%v err=%v", found, err)
	}

	_, found, err = FindAndDecode(strings.Repeat("A", 101))
	if !found || err == nil {
		t.Errorf("expected found with decode error, got found=%v err=%v", found, err)
	}
}
