package profile

import (
	"errors"
	"testing"
)

func TestCaptureRequiresBothFields(t *testing.T) {
	cases := []struct {
		name  string
		field string
	}{
		{"", ""},
		{"Kim", ""},
		{"", "Neuroscience"},
		{"   ", "Neuroscience"},
		{"Kim", "\t"},
	}

	for _, tc := range cases {
		got, err := Capture(tc.name, tc.field)
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("Capture(%q, %q) err = %v, want ErrIncomplete", tc.name, tc.field, err)
		}
		if got.Initialized {
			t.Fatalf("Capture(%q, %q) returned an initialized profile", tc.name, tc.field)
		}
	}
}

func TestCaptureAcceptsCompleteForm(t *testing.T) {
	got, err := Capture(" Kim ", "Neuroscience")
	if err != nil {
		t.Fatalf("Capture err: %v", err)
	}
	if !got.Initialized {
		t.Fatal("expected initialized profile")
	}
	if got.Name != "Kim" || got.Field != "Neuroscience" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}
