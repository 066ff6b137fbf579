package notifier

import (
	"testing"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		amount   int
		expected string
	}{
		{0, "£0"},
		{950, "£950"},
		{1000, "£1,000"},
		{950000, "£950,000"},
		{1250000, "£1,250,000"},
	}

	for _, tc := range cases {
		if got := FormatPrice(tc.amount); got != tc.expected {
			t.Errorf("FormatPrice(%d) = %q, expected %q", tc.amount, got, tc.expected)
		}
	}
}

func TestSend_NoneBackend(t *testing.T) {
	n := NewNotifier(BackendNone, "")

	if n.send("title", "content") {
		t.Error("The none backend should never report a successful send")
	}
}

func TestSend_NtfyWithoutURL(t *testing.T) {
	n := NewNotifier(BackendNtfy, "")

	if n.send("title", "content") {
		t.Error("ntfy backend without a URL should fail to send")
	}
}

func TestIntOrQuestion(t *testing.T) {
	if intOrQuestion(nil) != "?" {
		t.Error("nil should render as '?'")
	}
	three := 3
	if intOrQuestion(&three) != "3" {
		t.Errorf("Expected '3', got %q", intOrQuestion(&three))
	}
}
