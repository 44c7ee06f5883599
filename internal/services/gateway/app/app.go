package app

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeonardoBeccarini/agribot/internal/broadcast"
	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	"github.com/LeonardoBeccarini/agribot/internal/services/device"
	"github.com/LeonardoBeccarini/agribot/internal/services/event"
)

type Config struct {
	Device  *device.DeviceService
	Hub     *broadcast.Hub
	Metrics *metrics.Metrics

	// Health feeds /healthz and /readyz.
	Health event.Deps
	// Events serves /api/events/actuators; nil answers with an empty list.
	Events http.Handler

	Logger *log.Logger
}

// Gateway is the HTTP face of the service: REST API, websocket push, probes.
type Gateway struct {
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Events == nil {
		cfg.Events = event.NewActuatorEventsHandler(nil, "", "", nil)
	}
	return &Gateway{
		cfg:    cfg,
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		now: time.Now,
	}
}

// Routes returns the full handler tree, wrapped in CORS and request logging.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", g.HandleHealth)
	mux.HandleFunc("POST /api/auth/login", g.HandleLogin)

	mux.HandleFunc("GET /api/sensors/all", g.HandleAll)
	mux.HandleFunc("GET /api/sensors/soil-moisture", g.HandleSoilMoisture)
	mux.HandleFunc("GET /api/sensors/water-level", g.HandleWaterLevel)
	mux.HandleFunc("GET /api/sensors/light-intensity", g.HandleLightIntensity)
	mux.HandleFunc("GET /api/weather", g.HandleWeather)
	mux.HandleFunc("GET /api/analytics", g.HandleAnalytics)

	mux.HandleFunc("POST /api/irrigation/toggle", g.HandleIrrigationToggle)
	mux.HandleFunc("POST /api/security/toggle", g.HandleSecurityToggle)
	mux.HandleFunc("POST /api/camera/record", g.HandleCameraRecord)

	mux.Handle("GET /api/events/actuators", g.cfg.Events)
	mux.HandleFunc("GET /ws", g.HandleWS)

	mux.Handle("GET /healthz", event.NewHealthHandler(g.cfg.Health))
	mux.Handle("GET /readyz", event.NewReadyHandler(g.cfg.Health))
	mux.Handle("GET /metrics", g.cfg.Metrics.Handler())

	return withCORS(withRequestLog(g.logger, mux))
}
