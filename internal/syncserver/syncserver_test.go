package syncserver

import (
	"strings"
	"testing"
)

func TestStatusWhenStopped(t *testing.T) {
	server := New(t.TempDir(), 8080)
	status := server.Status()
	if status.IsRunning || status.Address != "" || status.Port != 8080 {
		t.Errorf("fresh status = %+v", status)
	}
	// Stopping a stopped server is a no-op.
	server.Stop()
}

func TestPairingQRRequiresRunningServer(t *testing.T) {
	server := New(t.TempDir(), 8080)
	if _, err := server.PairingQR(); err == nil {
		t.Error("expected error while stopped")
	}
}

func TestPairingQRDataURL(t *testing.T) {
	server := New(t.TempDir(), 8080)
	server.mu.Lock()
	server.status.IsRunning = true
	server.status.Address = "http://192.168.1.20:8080"
	server.mu.Unlock()

	dataURL, err := server.PairingQR()
	if err != nil {
		t.Fatalf("PairingQR failed: %v", err)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Errorf("unexpected data URL prefix: %q", dataURL[:32])
	}
}
