package checksum

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// echo -n "hello" | sha256sum
const helloSum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

// sha256 of the empty input
const emptySum = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestCalculateSHA256(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"hello", "hello", helloSum},
		{"empty input", "", emptySum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSHA256(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("CalculateSHA256() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateSHA256(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("deterministic and collision free on distinct inputs", func(t *testing.T) {
		a1, _ := CalculateSHA256(strings.NewReader("rack-3.0.0.gem"))
		a2, _ := CalculateSHA256(strings.NewReader("rack-3.0.0.gem"))
		b, _ := CalculateSHA256(strings.NewReader("rake-3.0.0.gem"))
		if a1 != a2 {
			t.Error("CalculateSHA256() differed across runs for the same input")
		}
		if a1 == b {
			t.Error("CalculateSHA256() collided for different inputs")
		}
	})

	t.Run("binary data yields 64-char lowercase hex", func(t *testing.T) {
		got, err := CalculateSHA256(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0xFF}))
		if err != nil {
			t.Fatalf("CalculateSHA256() error: %v", err)
		}
		if len(got) != 64 {
			t.Fatalf("CalculateSHA256() returned %d-char string, want 64", len(got))
		}
		if got != strings.ToLower(got) {
			t.Errorf("CalculateSHA256() returned uppercase hex: %q", got)
		}
	})

	t.Run("read error is propagated", func(t *testing.T) {
		if _, err := CalculateSHA256(errReader{}); err == nil {
			t.Error("CalculateSHA256() expected error from failing reader, got nil")
		}
	})
}

func TestVerifySHA256(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		want     bool
	}{
		{"matching checksum", "hello", helloSum, true},
		{"wrong checksum", "hello", strings.Repeat("0", 64), false},
		{"empty data with its known checksum", "", emptySum, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifySHA256(strings.NewReader(tt.input), tt.expected)
			if err != nil {
				t.Fatalf("VerifySHA256() error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("VerifySHA256(%q, %q) = %v, want %v", tt.input, tt.expected, ok, tt.want)
			}
		})
	}

	t.Run("read error is propagated", func(t *testing.T) {
		if _, err := VerifySHA256(errReader{}, helloSum); err == nil {
			t.Error("VerifySHA256() expected error from failing reader, got nil")
		}
	})
}

func TestCopyAndSum(t *testing.T) {
	t.Run("copies data and returns its checksum", func(t *testing.T) {
		var dst bytes.Buffer
		sum, n, err := CopyAndSum(&dst, strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("CopyAndSum() error: %v", err)
		}
		if n != 5 {
			t.Errorf("CopyAndSum() wrote %d bytes, want 5", n)
		}
		if dst.String() != "hello" {
			t.Errorf("CopyAndSum() copied %q, want %q", dst.String(), "hello")
		}
		if sum != helloSum {
			t.Errorf("CopyAndSum() checksum = %q, want %q", sum, helloSum)
		}
	})

	t.Run("read error is propagated", func(t *testing.T) {
		var dst bytes.Buffer
		if _, _, err := CopyAndSum(&dst, errReader{}); err == nil {
			t.Error("CopyAndSum() expected error from failing reader, got nil")
		}
	})
}

// errReader is an io.Reader that always returns an error.
type errReader struct{}

func (errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
