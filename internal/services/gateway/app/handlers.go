package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (g *Gateway) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Timestamp: g.now().UTC()})
}

func (g *Gateway) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   mockToken,
		User:    User{ID: 1, Username: req.Username, Role: mockRole},
	})
}

// ---------- Reads ----------

func (g *Gateway) HandleAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.cfg.Device.State().State)
}

func (g *Gateway) HandleSoilMoisture(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.cfg.Device.SoilMoisture())
}

func (g *Gateway) HandleWaterLevel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.cfg.Device.WaterLevel())
}

func (g *Gateway) HandleLightIntensity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.cfg.Device.LightIntensity())
}

func (g *Gateway) HandleWeather(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.cfg.Device.Weather())
}

func (g *Gateway) HandleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.cfg.Device.Analytics())
}

// ---------- Toggles ----------

func (g *Gateway) HandleIrrigationToggle(w http.ResponseWriter, _ *http.Request) {
	irr, err := g.cfg.Device.ToggleIrrigation(messages.SourceHTTP)
	if err != nil {
		g.toggleFailed(w, "irrigation", err)
		return
	}
	writeJSON(w, http.StatusOK, IrrigationToggleResponse{Success: true, Irrigation: irr})
}

func (g *Gateway) HandleSecurityToggle(w http.ResponseWriter, _ *http.Request) {
	sec, err := g.cfg.Device.ToggleSecurity(messages.SourceHTTP)
	if err != nil {
		g.toggleFailed(w, "security", err)
		return
	}
	writeJSON(w, http.StatusOK, SecurityToggleResponse{Success: true, Security: sec})
}

func (g *Gateway) HandleCameraRecord(w http.ResponseWriter, _ *http.Request) {
	cam, err := g.cfg.Device.ToggleCamera(messages.SourceHTTP)
	if err != nil {
		g.toggleFailed(w, "camera", err)
		return
	}
	writeJSON(w, http.StatusOK, CameraRecordResponse{Success: true, Camera: cam})
}

func (g *Gateway) toggleFailed(w http.ResponseWriter, what string, err error) {
	g.logger.Printf("gateway: %s toggle failed: %v", what, err)
	code := http.StatusInternalServerError
	if errors.Is(err, store.ErrStoreClosed) {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, ErrorResponse{Message: what + " toggle failed"})
}
