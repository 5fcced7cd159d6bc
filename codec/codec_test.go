package codec

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"git.tcp.direct/kayos/common"
	"github.com/davecgh/go-spew/spew"
)

type issue struct {
	ID       string            `json:"id"`
	Comments []string          `json:"comments"`
	Labels   map[string]string `json:"labels"`
}

func TestJSON_RoundTrip(t *testing.T) {
	c := JSON[*issue]{}
	in := &issue{
		ID:       common.RandStr(12),
		Comments: []string{"one", "two"},
		Labels:   map[string]string{"b": "2", "a": "1", "c": "3"},
	}
	raw, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	out, err := c.Unmarshal(raw)
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("[FAIL] round trip mismatch:\n%s\n%s", spew.Sdump(in), spew.Sdump(out))
	}
}

func TestJSON_Deterministic(t *testing.T) {
	c := JSON[map[string]any]{}
	v := map[string]any{}
	for i := 0; i < 50; i++ {
		v[common.RandStr(8)] = i
	}
	first, err := c.Marshal(v)
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Marshal(v)
		if err != nil {
			t.Fatalf("[FAIL] %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("[FAIL] encoding an unchanged map produced different bytes")
		}
		if Fingerprint(first) != Fingerprint(again) {
			t.Fatalf("[FAIL] fingerprints differ for identical bytes")
		}
	}
}

func TestJSON_UnmarshalGarbage(t *testing.T) {
	if _, err := (JSON[string]{}).Unmarshal([]byte("{not json")); err == nil {
		t.Error("[FAIL] expected error decoding garbage")
	}
}

func TestJSON_UnmarshalTrailingData(t *testing.T) {
	for _, raw := range []string{`"yeet" "again"`, `{"id":"1"}}`, `1 2`} {
		if _, err := (JSON[any]{}).Unmarshal([]byte(raw)); !errors.Is(err, ErrTrailingData) {
			t.Errorf("[FAIL] %s: expected ErrTrailingData, got %v", raw, err)
		}
	}
	if _, err := (JSON[any]{}).Unmarshal([]byte("  {\"id\":\"1\"}\n")); err != nil {
		t.Errorf("[FAIL] surrounding whitespace should be accepted: %v", err)
	}
}

func TestJSON_LargeIntegers(t *testing.T) {
	c := JSON[map[string]any]{}
	for _, raw := range []string{
		`{"id":9007199254740993}`,
		`{"id":18446744073709551615}`,
		`{"nested":{"ids":[9007199254740993,-9007199254740995]},"ratio":0.1}`,
	} {
		v, err := c.Unmarshal([]byte(raw))
		if err != nil {
			t.Fatalf("[FAIL] %v", err)
		}
		again, err := c.Marshal(v)
		if err != nil {
			t.Fatalf("[FAIL] %v", err)
		}
		if string(again) != raw {
			t.Errorf("[FAIL] number precision lost:\nhave %s\nwant %s", again, raw)
		}
		if Fingerprint(again) != Fingerprint([]byte(raw)) {
			t.Errorf("[FAIL] fingerprint changed for an untouched value: %s", spew.Sdump(v))
		}
	}
}

func TestBytes(t *testing.T) {
	c := Bytes{}
	if _, err := c.Marshal(nil); err == nil {
		t.Error("[FAIL] expected error for nil slice")
	}
	in := []byte("yeet")
	raw, err := c.Marshal(in)
	if err != nil || !bytes.Equal(raw, in) {
		t.Fatalf("[FAIL] got %q, %v", raw, err)
	}
	out, _ := c.Unmarshal(raw)
	out[0] = 'Y'
	if raw[0] != 'y' {
		t.Error("[FAIL] Unmarshal should copy its input")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("one"))
	b := Fingerprint([]byte("two"))
	if a == b {
		t.Errorf("[FAIL] distinct inputs share a fingerprint: %s", a)
	}
	if a != Fingerprint([]byte("one")) {
		t.Error("[FAIL] fingerprint is not stable")
	}
	if len(a.String()) != 64 {
		t.Errorf("[FAIL] unexpected hex length %d", len(a.String()))
	}
}
