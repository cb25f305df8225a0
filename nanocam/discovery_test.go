package nanocam

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestScanDevices(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video10", "video2", "video0", "media0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ScanDevices(context.Background(), filepath.Join(dir, "video*"))
	if err != nil {
		t.Fatalf("ScanDevices() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "video0"),
		filepath.Join(dir, "video2"),
		filepath.Join(dir, "video10"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ScanDevices() = %v, want %v", got, want)
	}
}

func TestScanDevices_Cancelled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "video0"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanDevices(ctx, filepath.Join(dir, "video*"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ScanDevices() error = %v, want context.Canceled", err)
	}
}

func TestDevicePath(t *testing.T) {
	tests := map[int]string{0: "/dev/video0", 1: "/dev/video1", 12: "/dev/video12"}
	for id, want := range tests {
		if got := DevicePath(id); got != want {
			t.Errorf("DevicePath(%d) = %q, want %q", id, got, want)
		}
		if n := deviceNumber(want); n != id {
			t.Errorf("deviceNumber(%q) = %d, want %d", want, n, id)
		}
	}
	if n := deviceNumber("/dev/video"); n != -1 {
		t.Errorf("deviceNumber without index = %d, want -1", n)
	}
}
