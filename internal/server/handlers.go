package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrscan"
	"github.com/MeKo-Tech/qrscan/decode"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding health response", "error", err)
	}
}

// scanImageHandler decodes a QR code from an uploaded image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(imageData)))

	roi, err := parseRegion(r.FormValue("region"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	payload, err := s.scan(r.Context(), imageData, roi)
	elapsed := time.Since(start)
	scanProcessingDuration.WithLabelValues("http").Observe(elapsed.Seconds())

	w.Header().Set("Content-Type", "application/json")
	switch {
	case err == nil:
		scanRequestsTotal.WithLabelValues("http", "success").Inc()
		s.writeJSON(w, ScanResponse{
			Success:      true,
			Payload:      payload,
			ProcessingMs: elapsed.Milliseconds(),
		})
	case errors.Is(err, decode.ErrNotFound):
		scanRequestsTotal.WithLabelValues("http", "not_found").Inc()
		s.writeJSON(w, ScanResponse{
			Success:      false,
			Error:        "no QR code found",
			ProcessingMs: elapsed.Milliseconds(),
		})
	default:
		scanRequestsTotal.WithLabelValues("http", "error").Inc()
		var loadErr *qrscan.ImageLoadError
		if errors.As(err, &loadErr) {
			s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), http.StatusInternalServerError)
	}
}

// scan decodes an uploaded image against the shared backend.
func (s *Server) scan(ctx context.Context, imageData []byte, roi image.Rectangle) (string, error) {
	engine := s.handle.Engine()
	if engine == nil {
		return "", decode.ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	opts := []qrscan.ScanOption{qrscan.WithEngine(engine)}
	if !roi.Empty() {
		opts = append(opts, qrscan.WithScanRegion(roi))
		if s.retryWithFull {
			opts = append(opts, qrscan.WithRetryWithoutRegion())
		}
	}
	return qrscan.ScanImage(ctx, imageData, opts...)
}

// parseRegion parses an optional "x,y,width,height" scan region.
func parseRegion(value string) (image.Rectangle, error) {
	if value == "" {
		return image.Rectangle{}, nil
	}
	var x, y, width, height int
	if _, err := fmt.Sscanf(value, "%d,%d,%d,%d", &x, &y, &width, &height); err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid region %q (expected x,y,width,height)", value)
	}
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid region %q (width and height must be positive)", value)
	}
	return image.Rect(x, y, x+width, y+height), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, response ScanResponse) {
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding scan response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ScanResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("writing error response", "error", err)
	}
}
