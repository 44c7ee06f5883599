package app

import (
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
)

// ---------- Auth ----------

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// mock credentials: any non-empty pair logs in as admin
const (
	mockToken = "mock-jwt-token"
	mockRole  = "admin"
)

// ---------- Responses ----------

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type IrrigationToggleResponse struct {
	Success    bool                `json:"success"`
	Irrigation entities.Irrigation `json:"irrigation"`
}

type SecurityToggleResponse struct {
	Success  bool              `json:"success"`
	Security entities.Security `json:"security"`
}

type CameraRecordResponse struct {
	Success bool            `json:"success"`
	Camera  entities.Camera `json:"camera"`
}
