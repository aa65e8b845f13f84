package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mtraver/angle-sensor/cache"
	"github.com/mtraver/angle-sensor/measurement"
	"github.com/mtraver/angle-sensor/pending"
)

type indexHandler struct {
	deviceID string
	sensors  []string
	latest   *cache.Cache[measurement.Measurement]
	pending  *pending.Store
}

func (h indexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	fmt.Fprintf(w, "device: %s\n", h.deviceID)
	fmt.Fprintf(w, "sensors: %v\n", h.sensors)

	if m, ok := h.latest.Lookup(measurement.CacheKeyLatest(h.deviceID)); ok {
		fmt.Fprintf(w, "latest: %v\n", m)
	} else {
		fmt.Fprintln(w, "latest: none")
	}

	if n, err := h.pending.Count(); err != nil {
		fmt.Fprintf(w, "pending: error: %v\n", err)
	} else {
		fmt.Fprintf(w, "pending: %d\n", n)
	}
}

// latestHandler serves the latest measurement as JSON.
type latestHandler struct {
	deviceID string
	latest   *cache.Cache[measurement.Measurement]
}

func (h latestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := h.latest.Lookup(measurement.CacheKeyLatest(h.deviceID))
	if !ok {
		http.Error(w, "no recent measurement", http.StatusNotFound)
		return
	}

	b, err := json.Marshal(m)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
