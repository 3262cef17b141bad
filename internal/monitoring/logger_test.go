package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerCaptures(t *testing.T) {
	defer SetLogger(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("hello %d", 7)
	if got != "hello 7" {
		t.Errorf("captured %q, want %q", got, "hello 7")
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("dropped %s", "message")
}

func TestDebugfRespectsVerbose(t *testing.T) {
	defer SetLogger(nil)
	defer func() { Verbose = false }()

	calls := 0
	SetLogger(func(format string, v ...interface{}) { calls++ })

	Verbose = false
	Debugf("quiet")
	if calls != 0 {
		t.Fatalf("Debugf logged %d times with Verbose off", calls)
	}

	Verbose = true
	Debugf("loud")
	if calls != 1 {
		t.Fatalf("Debugf logged %d times with Verbose on, want 1", calls)
	}
}
