/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_EventAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var events [][]byte
	crashes := make(chan []byte, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		events = append(events, b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		crashes <- b
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Layout("merge", LayoutStats{Visible: 11, Merged: 1})
	c.Flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "layout.merge" {
		t.Fatalf("event name mismatch: %v", m["name"])
	}
	if m["session"] != c.Session() || c.Session() == "" {
		t.Fatalf("session mismatch: %v", m["session"])
	}
	lay, _ := m["layout"].(map[string]any)
	if lay["merged"] != float64(1) {
		t.Fatalf("layout stats missing: %v", m["layout"])
	}

	c.UploadCrash([]byte("STACKTRACE"))
	select {
	case b := <-crashes:
		if string(b) != "STACKTRACE" {
			t.Fatalf("crash body = %q", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected crash upload")
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

func TestFromEnvAndConfig(t *testing.T) {
	t.Setenv("GN_TELEMETRY_OPT_IN", "")
	t.Setenv("GN_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("GN_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	if !FromConfig(true).OptIn {
		t.Fatalf("config opt-in should enable telemetry")
	}

	c := New(FromConfig(true))
	SetDefault(c)
	t.Cleanup(func() { SetDefault(nil) })
	if Default() != c || !Default().Enabled() {
		t.Fatalf("default client not installed")
	}
}

// An unroutable endpoint exercises the error paths without panicking.
func TestTelemetry_SendErrorBranches(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
}
