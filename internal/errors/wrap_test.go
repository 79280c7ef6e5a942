package errors

import (
	"errors"
	"testing"
)

func TestWrapper_Wrap(t *testing.T) {
	wrapper := NewWrapper("importer", "publish")
	cause := errors.New("database locked")

	err := wrapper.Wrap(cause, "failed to publish record")
	if err == nil {
		t.Fatal("expected non-nil error")
	}

	expected := "[importer:publish] failed to publish record: database locked"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
}

func TestWrapper_WrapNil(t *testing.T) {
	wrapper := NewWrapper("importer", "publish")
	if err := wrapper.Wrap(nil, "should be nil"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := wrapper.Wrapf(nil, "should be nil %d", 42); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWrapper_Wrapf(t *testing.T) {
	wrapper := NewWrapper("filecache", "download_file")
	cause := errors.New("timeout")

	err := wrapper.Wrapf(cause, "failed after %d attempts", 1)
	expected := "[filecache:download_file] failed after 1 attempts: timeout"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
