package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	coremetrics "github.com/fleetops/shiftd/core/metrics"
)

func TestInfluxFallbackOnFailedHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(coremetrics.Config{InfluxURL: srv.URL})
	assert.IsType(t, coremetrics.NopSink{}, sink)
}

func TestInfluxFallbackKeepsHealthySink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"name":"influxdb","status":"pass"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(coremetrics.Config{InfluxURL: srv.URL, InfluxOrg: "org", InfluxBucket: "b"})
	assert.IsType(t, &InfluxSink{}, sink)
}
