package codec

import (
	"strings"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.Field("version", "1")
	w.Field("url", "https://example.com")
	w.Raw("header:content-type:text/html")
	w.Raw("header:date:2024-01-15")
	data := w.Bytes()

	r := NewReader(data)
	if v, err := r.ExpectField("version"); err != nil || v != "1" {
		t.Fatalf("version: %q, %v", v, err)
	}
	if v, err := r.ExpectField("url"); err != nil || v != "https://example.com" {
		t.Fatalf("url: %q, %v", v, err)
	}
	headers := r.TakeWhilePrefix("header:")
	if len(headers) != 2 {
		t.Fatalf("expected 2 header lines, got %d", len(headers))
	}
	if !r.Done() {
		t.Fatalf("expected reader to be exhausted")
	}
}

func TestExpectFieldRejectsWrongOrder(t *testing.T) {
	w := NewWriter()
	w.Field("b", "2")
	w.Field("a", "1")
	r := NewReader(w.Bytes())
	if _, err := r.ExpectField("a"); err == nil {
		t.Fatalf("expected error for out-of-order field")
	}
}

func TestHexValidation(t *testing.T) {
	good := strings.Repeat("ca97", 16)
	if !IsLowerHex64(good) {
		t.Fatalf("expected valid hex64")
	}
	if IsLowerHex64(good[:63]) {
		t.Fatalf("short string should not validate")
	}
	upper := strings.ToUpper(good)
	if IsLowerHex64(upper) {
		t.Fatalf("uppercase hex should not validate")
	}
	if _, err := DecodeHex("abc", -1); err == nil {
		t.Fatalf("odd length should fail")
	}
	if _, err := DecodeHex("zz", -1); err == nil {
		t.Fatalf("non-hex should fail")
	}
}
