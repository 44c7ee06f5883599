package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/sony/gobreaker"
)

// ActuatorEvent is one entry of GET /api/events/actuators.
type ActuatorEvent struct {
	Actuator string `json:"actuator"`
	Active   bool   `json:"active"`
	Source   string `json:"source,omitempty"`
	Time     string `json:"time"` // RFC3339
}

type eventQueryParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseEventQuery(r *http.Request, defMin, defLim, defTOms int) eventQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return eventQueryParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.event_type == %q)
  |> filter(fn: (r) => r._field == "active")
  |> keep(columns: ["_time","_value","actuator","source"])
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, measurementEvent, EventTypeStateChange, limit)
}

func tagString(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func queryEvents(ctx context.Context, influx influxdb2.Client, org, bucket string, p eventQueryParams) ([]ActuatorEvent, error) {
	res, err := influx.QueryAPI(org).Query(ctx, buildFlux(bucket, p.Minutes, p.Limit))
	if err != nil {
		return nil, err
	}
	defer res.Close()

	out := make([]ActuatorEvent, 0, p.Limit)
	for res.Next() {
		rec := res.Record()
		var active bool
		switch v := rec.Value().(type) {
		case bool:
			active = v
		case string:
			active, _ = strconv.ParseBool(strings.TrimSpace(v))
		}
		out = append(out, ActuatorEvent{
			Actuator: tagString(rec.ValueByKey("actuator")),
			Active:   active,
			Source:   tagString(rec.ValueByKey("source")),
			Time:     rec.Time().UTC().Format(time.RFC3339),
		})
	}
	return out, res.Err()
}

// NewActuatorEventsHandler serves GET /api/events/actuators?limit=20[&minutes=1440].
// Without an Influx client, or when the query fails, it answers with an empty list.
func NewActuatorEventsHandler(influx influxdb2.Client, org, bucket string, cb *gobreaker.CircuitBreaker) http.Handler {
	if cb == nil {
		cb = NewBreaker("influx-query", 3, 15*time.Second)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if influx == nil {
			_, _ = w.Write([]byte("[]"))
			return
		}

		p := parseEventQuery(r, 1440, 20, 2000)
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		res, err := cb.Execute(func() (interface{}, error) {
			return queryEvents(ctx, influx, org, bucket, p)
		})
		if err != nil {
			w.Header().Set("X-Error", "influx-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode(res.([]ActuatorEvent))
	})
}
