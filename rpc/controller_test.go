package rpc

import "testing"

func TestControllerDefaults(t *testing.T) {
	c := NewController()
	if c.Failed() {
		t.Fatal("fresh controller should not be failed")
	}
	if c.ErrorText() != "" {
		t.Fatalf("expected empty error text, got %q", c.ErrorText())
	}
	if c.GetTimeout() != defaultTimeoutMs {
		t.Fatalf("expected default timeout %d, got %d", defaultTimeoutMs, c.GetTimeout())
	}
}

func TestControllerSetFailedAndReset(t *testing.T) {
	c := NewController()
	c.SetFailed("recv timeout")

	if !c.Failed() {
		t.Fatal("expected Failed() true after SetFailed")
	}
	if c.ErrorText() != "recv timeout" {
		t.Fatalf("expected %q, got %q", "recv timeout", c.ErrorText())
	}

	c.Reset()
	if c.Failed() || c.ErrorText() != "" {
		t.Fatal("Reset should clear failed and error text")
	}
}

func TestControllerTimeout(t *testing.T) {
	c := NewController()
	c.SetTimeout(250)
	if c.GetTimeout() != 250 {
		t.Fatalf("expected 250, got %d", c.GetTimeout())
	}
}

func TestControllerCancellationIsInert(t *testing.T) {
	c := NewController()
	c.StartCancel()
	if c.IsCanceled() {
		t.Fatal("IsCanceled must always be false; cancellation is not implemented")
	}
}
