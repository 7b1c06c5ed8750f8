// Package syncserver exposes the LAN sync endpoint: a tiny HTTP server that
// streams the data root as one ZIP and accepts an archive upload into a
// staging workspace.
package syncserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"tauritavern/internal/archive"
)

const maxUploadBytes = 1024 * 1024 * 1024 // 1 GiB

// Status is the /status response.
type Status struct {
	IsRunning bool   `json:"is_running"`
	Address   string `json:"address,omitempty"`
	Port      int    `json:"port"`
}

// Server manages the sync listener lifecycle. It cannot be stopped from
// inside a request handler; Stop is the only way down.
type Server struct {
	mu       sync.Mutex
	app      *fiber.App
	status   Status
	dataRoot string
}

// New creates a sync server for a data root.
func New(dataRoot string, port int) *Server {
	return &Server{
		status:   Status{Port: port},
		dataRoot: dataRoot,
	}
}

// localIP finds the host's LAN address.
func localIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("failed to determine local IP: %w", err)
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type")
	}
	return addr.IP.String(), nil
}

// Start binds the listener and returns the advertised URL. Starting a
// running server returns the current address.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsRunning {
		return s.status.Address, nil
	}

	ip, err := localIP()
	if err != nil {
		return "", err
	}
	address := fmt.Sprintf("http://%s:%d", ip, s.status.Port)

	app := fiber.New(fiber.Config{
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
	})
	// Trusted LAN, so CORS stays permissive.
	app.Use(cors.New())
	app.Get("/status", s.handleStatus)
	app.Get("/download", s.handleDownload)
	app.Post("/upload", s.handleUpload)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", ip, s.status.Port))
	if err != nil {
		return "", fmt.Errorf("failed to bind sync server: %w", err)
	}

	s.app = app
	s.status.IsRunning = true
	s.status.Address = address

	go func() {
		log.Printf("🔄 LAN sync server listening on %s", address)
		if err := app.Listener(listener); err != nil {
			log.Printf("⚠️  LAN sync server stopped: %v", err)
		}
	}()
	return address, nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.IsRunning {
		return
	}
	if s.app != nil {
		_ = s.app.Shutdown()
		s.app = nil
	}
	s.status.IsRunning = false
	s.status.Address = ""
}

// Status reports the current listener state.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	tempZip := filepath.Join(os.TempDir(), fmt.Sprintf("tauritavern_sync_%s.zip", uuid.NewString()))
	job, ctx := archive.NewJob(context.Background())
	if err := archive.Export(ctx, job, s.dataRoot, tempZip); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export data archive",
		})
	}
	defer os.Remove(tempZip)
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="tauritavern_backup.zip"`)
	return c.SendFile(tempZip)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}
	tempZip := filepath.Join(os.TempDir(), fmt.Sprintf("tauritavern_upload_%s.zip", uuid.NewString()))
	if err := c.SaveFile(file, tempZip); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store uploaded archive",
		})
	}
	defer os.Remove(tempZip)

	workspace := filepath.Join(filepath.Dir(s.dataRoot), "sync_workspace")
	job, ctx := archive.NewJob(context.Background())
	if err := archive.Import(ctx, job, tempZip, workspace); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to import data archive",
		})
	}
	return c.JSON(fiber.Map{"message": "Data imported; restart the app to apply."})
}

// PairingQR renders the server URL as a QR code PNG, returned as a data URL
// for direct use in an <img> tag.
func (s *Server) PairingQR() (string, error) {
	status := s.Status()
	if !status.IsRunning || status.Address == "" {
		return "", fmt.Errorf("sync server is not running")
	}
	png, err := qrcode.Encode(status.Address, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render pairing QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
