package event

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

const (
	depOK       = "ok"
	depDown     = "down"
	depDisabled = "disabled"
)

// Engine reports whether the tick loop is alive.
type Engine interface {
	Running() bool
}

// Deps are the dependencies reported by /healthz and /readyz.
// A nil MQTT or Influx client means the sink is disabled, not failing.
type Deps struct {
	MQTT   mqtt.Client
	Influx influxdb2.Client
	Writer *Writer
	Engine Engine

	// MinErrorAge is how long the last Influx write error must be in the past for "ok".
	MinErrorAge time.Duration
}

type healthStatus struct {
	Status          string  `json:"status"`
	Engine          string  `json:"engine"`
	MQTT            string  `json:"mqtt"`
	Influx          string  `json:"influx"`
	LastWriteErrorS float64 `json:"last_write_error_age_sec,omitempty"`
}

func (d Deps) check() (healthStatus, bool) {
	minAge := d.MinErrorAge
	if minAge <= 0 {
		minAge = 30 * time.Second
	}
	st := healthStatus{Engine: "stopped", MQTT: depDisabled, Influx: depDisabled}

	engineOK := d.Engine != nil && d.Engine.Running()
	if engineOK {
		st.Engine = "running"
	}
	healthy := 0
	enabled := 0
	if d.MQTT != nil {
		enabled++
		st.MQTT = depDown
		if d.MQTT.IsConnectionOpen() {
			st.MQTT = depOK
			healthy++
		}
	}
	if d.Influx != nil {
		enabled++
		st.Influx = depDown
		st.LastWriteErrorS = d.Writer.LastErrorAge().Seconds()
		if d.Writer.LastErrorAge() > minAge {
			st.Influx = depOK
			healthy++
		}
	}

	switch {
	case engineOK && healthy == enabled:
		st.Status = "ok"
	case engineOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	return st, engineOK && healthy == enabled
}

// NewHealthHandler reports every dependency; always 200.
func NewHealthHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		st, _ := d.check()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})
}

// Handler /readyz: 200 solo se tutte le dipendenze abilitate sono ok.
func NewReadyHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, ready := d.check()
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		type resp struct {
			Ready bool `json:"ready"`
		}
		_ = json.NewEncoder(w).Encode(resp{Ready: ready})
	})
}
