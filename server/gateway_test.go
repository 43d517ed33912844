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

package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jochym/nexsim/auxbus"
	"github.com/jochym/nexsim/mount"
	"github.com/stretchr/testify/require"
)

func testMount(t *testing.T) *mount.Mount {
	t.Helper()
	cfg := mount.DefaultConfig()
	cfg.Perfect()
	m, err := mount.New(cfg)
	require.NoError(t, err)
	return m
}

func startGateway(t *testing.T) (net.Conn, *mount.Mount) {
	t.Helper()
	m := testMount(t)
	g := &Gateway{Mount: m}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = g.Serve(ctx, ln)
	}()
	t.Cleanup(cancel)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn, m
}

// readN reads exactly n bytes or fails on timeout
func readN(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, n)
	got := 0
	for got < n {
		r, err := conn.Read(buf[got:])
		require.NoError(t, err)
		got += r
	}
	return buf
}

func TestGatewayTransparentMode(t *testing.T) {
	conn, _ := startGateway(t)

	request := auxbus.Encode(auxbus.AddrAPP, auxbus.AddrAZM, auxbus.GetVer, nil)
	_, err := conn.Write(request)
	require.NoError(t, err)

	expected := append(append([]byte{}, request...),
		auxbus.Encode(auxbus.AddrAZM, auxbus.AddrAPP, auxbus.GetVer, []byte{7, 11, 19, 236})...)
	require.Equal(t, expected, readN(t, conn, len(expected)))
}

func TestGatewayCommandModeEscape(t *testing.T) {
	conn, _ := startGateway(t)

	_, err := conn.Write([]byte("$$$"))
	require.NoError(t, err)
	require.Equal(t, []byte("CMD\r\n"), readN(t, conn, 5))

	// arbitrary console lines are echoed and AOKed with the WiFly prompt
	_, err = conn.Write([]byte("get everything\r\n"))
	require.NoError(t, err)
	expected := []byte("get everything\r\n\r\nAOK\r\n<2.40-CEL> ")
	require.Equal(t, expected, readN(t, conn, len(expected)))

	// exit returns to transparent mode
	_, err = conn.Write([]byte("exit\r\n"))
	require.NoError(t, err)
	expected = []byte("exit\r\n\r\nEXIT\r\n")
	require.Equal(t, expected, readN(t, conn, len(expected)))

	// and AUX frames flow again
	request := auxbus.Encode(auxbus.AddrAPP, auxbus.AddrWiFi, auxbus.WiFiPing, nil)
	_, err = conn.Write(request)
	require.NoError(t, err)
	expected = append(append([]byte{}, request...),
		auxbus.Encode(auxbus.AddrWiFi, auxbus.AddrAPP, auxbus.WiFiPing, []byte{0x00})...)
	require.Equal(t, expected, readN(t, conn, len(expected)))
}

func TestGatewayEscapeDiscardsTrailingBytes(t *testing.T) {
	conn, _ := startGateway(t)

	// frame bytes trailing the escape in the same read are dropped
	payload := append([]byte("$$$"), auxbus.Encode(auxbus.AddrAPP, auxbus.AddrAZM, auxbus.GetVer, nil)...)
	_, err := conn.Write(payload)
	require.NoError(t, err)
	require.Equal(t, []byte("CMD\r\n"), readN(t, conn, 5))
}

func TestGatewaySilentAddressEchoOnly(t *testing.T) {
	conn, _ := startGateway(t)

	request := auxbus.Encode(auxbus.AddrAPP, 0x12, auxbus.GetVer, nil)
	_, err := conn.Write(request)
	require.NoError(t, err)
	require.Equal(t, request, readN(t, conn, len(request)))

	// nothing else arrives within the grace window
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	one := make([]byte, 1)
	_, err = conn.Read(one)
	var nerr net.Error
	require.ErrorAs(t, err, &nerr)
	require.True(t, nerr.Timeout())
}

func TestGatewayLogsConnectionLifecycle(t *testing.T) {
	conn, m := startGateway(t)

	_, err := conn.Write([]byte("$$$"))
	require.NoError(t, err)
	readN(t, conn, 5)
	conn.Close()

	require.Eventually(t, func() bool {
		msgs := m.MsgLog().Snapshot()
		return len(msgs) >= 2 && msgs[len(msgs)-1] == "Connection closed."
	}, 2*time.Second, 10*time.Millisecond)

	msgs := m.MsgLog().Snapshot()
	require.Contains(t, msgs[0], "Client connected from")
}
