package factory

import (
	"strings"
	"testing"
	"time"
)

type sample struct{ A int }

type sampleConf struct {
	A int `json:"a"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 {
		t.Fatalf("expected 3 got %d", inst.A)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("expected duplicate error")
	}
	_, err := reg.Create(ModuleConfig{Type: "y"})
	if err == nil {
		t.Fatal("expected unknown type error")
	}
	if !strings.Contains(err.Error(), `"y" (known: x)`) {
		t.Fatalf("unexpected error %v", err)
	}
}

// Test string values coming from env overrides.
func TestDecode_WeakTypes(t *testing.T) {
	var c struct {
		Bucket  string        `json:"bucket"`
		Batch   int           `json:"batch"`
		Enabled bool          `json:"enabled"`
		Flush   time.Duration `json:"flush"`
	}
	err := Decode(map[string]any{"bucket": "plan", "batch": "50", "enabled": "true", "flush": "2s"}, &c)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Batch != 50 || !c.Enabled || c.Flush != 2*time.Second || c.Bucket != "plan" {
		t.Fatalf("unexpected decode result %+v", c)
	}
}

func TestRegistry_Types(t *testing.T) {
	reg := NewRegistry[int]()
	_ = reg.Register("b", func(map[string]any) (int, error) { return 0, nil })
	_ = reg.Register("a", func(map[string]any) (int, error) { return 0, nil })
	types := reg.Types()
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Fatalf("unexpected types %v", types)
	}
}
