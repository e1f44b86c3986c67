package notify

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestReadyNoopWithoutNotifySocket(t *testing.T) {
	os.Unsetenv("NOTIFY_SOCKET")
	if err := Ready(); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestReadySendsToFilesystemSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := dir + "/notify.sock"

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: sockPath}); err != nil {
		t.Fatal(err)
	}

	os.Setenv("NOTIFY_SOCKET", sockPath)
	defer os.Unsetenv("NOTIFY_SOCKET")

	if err := Ready(); err != nil {
		t.Fatalf("Ready() failed: %v", err)
	}

	buf := make([]byte, 64)
	n, err := unix.Read(fd, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "READY=1" {
		t.Fatalf("got %q, want READY=1", buf[:n])
	}
}

func TestStoppingSendsExpectedPayload(t *testing.T) {
	dir := t.TempDir()
	sockPath := dir + "/notify-stop.sock"

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: sockPath}); err != nil {
		t.Fatal(err)
	}

	os.Setenv("NOTIFY_SOCKET", sockPath)
	defer os.Unsetenv("NOTIFY_SOCKET")

	if err := Stopping(); err != nil {
		t.Fatalf("Stopping() failed: %v", err)
	}

	buf := make([]byte, 64)
	n, err := unix.Read(fd, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "STOPPING=1" {
		t.Fatalf("got %q, want STOPPING=1", buf[:n])
	}
}
