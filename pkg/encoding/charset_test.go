package encoding

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseCharset(t *testing.T) {
	tests := []struct {
		in   string
		want Charset
	}{
		{"", UTF8},
		{"UTF-8", UTF8},
		{"shift_jis", ShiftJIS},
		{"Shift-JIS", ShiftJIS},
		{"cp932", ShiftJIS},
		{"EUC-KR", EUCKR},
	}
	for _, tc := range tests {
		got, err := ParseCharset(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseCharset(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseCharset("latin9"); err == nil {
		t.Error("ParseCharset(latin9) should fail")
	}
}

func TestShiftJISRoundTrip(t *testing.T) {
	name := "まばたき"
	field, err := ToFixedString(name, 128, ShiftJIS)
	if err != nil {
		t.Fatalf("ToFixedString() error = %v", err)
	}
	if len(field) != 128 {
		t.Fatalf("field length = %d, want 128", len(field))
	}
	// Four kana are two bytes each in Shift_JIS.
	if n := len(TrimNullBytes(field)); n != 8 {
		t.Errorf("encoded length = %d, want 8", n)
	}
	if got := FixedString(field, ShiftJIS); got != name {
		t.Errorf("FixedString() = %q, want %q", got, name)
	}
}

func TestUTF8Passthrough(t *testing.T) {
	field, err := ToFixedString("smile_L", 16, UTF8)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte("smile_L"), make([]byte, 9)...)
	if !bytes.Equal(field, want) {
		t.Errorf("field = %q, want %q", field, want)
	}
	if got := FixedString(field, UTF8); got != "smile_L" {
		t.Errorf("FixedString() = %q", got)
	}
}

func TestToFixedStringTooLong(t *testing.T) {
	_, err := ToFixedString("abcd", 4, UTF8)
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("error = %v, want ErrTooLong", err)
	}
	if _, err := ToFixedString("abc", 4, UTF8); err != nil {
		t.Errorf("3 bytes in a 4 byte field: %v", err)
	}
}

func TestEncodeUnrepresentable(t *testing.T) {
	if _, err := ShiftJIS.Encode("한글"); err == nil {
		t.Error("Hangul should not encode as Shift_JIS")
	}
}
