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

package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONStatsCounters(t *testing.T) {
	s := NewJSONStats()
	s.IncRX()
	s.IncRX()
	s.IncInvalid()
	s.IncTX()
	s.IncAuxConnections()
	s.IncStellariumConnections()
	s.DecStellariumConnections()
	s.IncGotos()

	m := s.toMap()
	require.Equal(t, int64(2), m["nexsim.rx"])
	require.Equal(t, int64(1), m["nexsim.invalidformat"])
	require.Equal(t, int64(0), m["nexsim.dropped"])
	require.Equal(t, int64(1), m["nexsim.tx"])
	require.Equal(t, int64(1), m["nexsim.auxconnections"])
	require.Equal(t, int64(0), m["nexsim.stellariumconnections"])
	require.Equal(t, int64(1), m["nexsim.gotos"])
}

func TestJSONStatsHTTP(t *testing.T) {
	s := NewJSONStats()
	s.IncRX()

	rr := httptest.NewRecorder()
	s.handleRequest(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var m map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	require.Equal(t, int64(1), m["nexsim.rx"])
}

func TestJSONStatsState(t *testing.T) {
	s := NewJSONStats()

	rr := httptest.NewRecorder()
	s.handleState(rr, httptest.NewRequest(http.MethodGet, "/state", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	s.SetStateFunc(func() any {
		return map[string]float64{"azm_pos": 0.25}
	})
	rr = httptest.NewRecorder()
	s.handleState(rr, httptest.NewRequest(http.MethodGet, "/state", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var state map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Equal(t, 0.25, state["azm_pos"])
}
