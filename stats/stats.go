/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package stats implements statistics collection and reporting for the
simulator. Counters are reported as JSON via an http interface on the
web port, together with a snapshot of mount state for UI consumers.
*/
package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// StateFunc produces a point-in-time view of mount state for the
// /state endpoint
type StateFunc func() any

// JSONStats implements the counter sinks of the bus and the servers.
// This is a passive implementation, only Start needs to be called.
type JSONStats struct {
	// keep these aligned to 64-bit for sync/atomic
	rx              int64
	invalidFormat   int64
	dropped         int64
	tx              int64
	auxConns        int64
	stellariumConns int64
	gotos           int64

	prefix string
	state  StateFunc
}

// NewJSONStats returns a new JSONStats
func NewJSONStats() *JSONStats {
	return &JSONStats{prefix: "nexsim."}
}

// SetStateFunc attaches the mount state snapshot provider
func (j *JSONStats) SetStateFunc(f StateFunc) {
	j.state = f
}

func (j *JSONStats) toMap() (export map[string]int64) {
	export = make(map[string]int64)

	export[fmt.Sprintf("%srx", j.prefix)] = atomic.LoadInt64(&j.rx)
	export[fmt.Sprintf("%sinvalidformat", j.prefix)] = atomic.LoadInt64(&j.invalidFormat)
	export[fmt.Sprintf("%sdropped", j.prefix)] = atomic.LoadInt64(&j.dropped)
	export[fmt.Sprintf("%stx", j.prefix)] = atomic.LoadInt64(&j.tx)
	export[fmt.Sprintf("%sauxconnections", j.prefix)] = atomic.LoadInt64(&j.auxConns)
	export[fmt.Sprintf("%sstellariumconnections", j.prefix)] = atomic.LoadInt64(&j.stellariumConns)
	export[fmt.Sprintf("%sgotos", j.prefix)] = atomic.LoadInt64(&j.gotos)

	return export
}

func (j *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(j.toMap())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

func (j *JSONStats) handleState(w http.ResponseWriter, _ *http.Request) {
	if j.state == nil {
		http.Error(w, "no state provider", http.StatusNotFound)
		return
	}
	js, err := json.Marshal(j.state())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// Start runs the http monitoring server on the given port
func (j *JSONStats) Start(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", j.handleRequest)
	mux.HandleFunc("/state", j.handleState)
	addr := fmt.Sprintf(":%d", port)
	log.Infof("Starting http json server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("monitoring server: %v", err)
	}
}

// IncRX atomically adds 1 to the received frames counter
func (j *JSONStats) IncRX() {
	atomic.AddInt64(&j.rx, 1)
}

// IncInvalid atomically adds 1 to the invalid frames counter
func (j *JSONStats) IncInvalid() {
	atomic.AddInt64(&j.invalidFormat, 1)
}

// IncDropped atomically adds 1 to the silently dropped frames counter
func (j *JSONStats) IncDropped() {
	atomic.AddInt64(&j.dropped, 1)
}

// IncTX atomically adds 1 to the produced responses counter
func (j *JSONStats) IncTX() {
	atomic.AddInt64(&j.tx, 1)
}

// IncAuxConnections atomically adds 1 to the AUX client counter
func (j *JSONStats) IncAuxConnections() {
	atomic.AddInt64(&j.auxConns, 1)
}

// IncStellariumConnections atomically adds 1 to the sky-chart client counter
func (j *JSONStats) IncStellariumConnections() {
	atomic.AddInt64(&j.stellariumConns, 1)
}

// DecStellariumConnections atomically subtracts 1 from the sky-chart client counter
func (j *JSONStats) DecStellariumConnections() {
	atomic.AddInt64(&j.stellariumConns, -1)
}

// IncGotos atomically adds 1 to the received goto requests counter
func (j *JSONStats) IncGotos() {
	atomic.AddInt64(&j.gotos, 1)
}
