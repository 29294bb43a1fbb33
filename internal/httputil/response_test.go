package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	BadRequest(rec, "test error")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "test error" {
		t.Errorf("error = %s, want 'test error'", resp["error"])
	}
}

func TestErrorHelpersStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		write func(http.ResponseWriter)
		want  int
	}{
		{MethodNotAllowed, http.StatusMethodNotAllowed},
		{func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError},
		{func(w http.ResponseWriter) { NotFound(w, "nope") }, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.write(rec)
		if rec.Code != tt.want {
			t.Errorf("status = %d, want %d", rec.Code, tt.want)
		}
	}
}

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	RCS   *float64 `json:"rcs_m2"`
}

func TestWantsMsgpack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"application/json", false},
		{"application/msgpack", true},
		{"text/html, application/msgpack;q=0.9", true},
		{"application/x-msgpack", true},
		{"*/*", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept", tt.accept)
		if got := WantsMsgpack(r); got != tt.want {
			t.Errorf("WantsMsgpack(%q) = %v, want %v", tt.accept, got, tt.want)
		}
	}
}

func TestWriteNegotiated(t *testing.T) {
	t.Parallel()

	rcs := 2.5
	data := sample{Name: "T0001", Count: 3, RCS: &rcs}

	r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	WriteNegotiated(rec, r, data)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %s, want application/json", ct)
	}

	r.Header.Set("Accept", ContentTypeMsgpack)
	rec = httptest.NewRecorder()
	WriteNegotiated(rec, r, data)
	if ct := rec.Header().Get("Content-Type"); ct != ContentTypeMsgpack {
		t.Fatalf("content-type = %s, want %s", ct, ContentTypeMsgpack)
	}

	// field names follow the json tags
	var generic map[string]interface{}
	if err := UnmarshalMsgpack(rec.Body.Bytes(), &generic); err != nil {
		t.Fatalf("failed to decode msgpack: %v", err)
	}
	if _, ok := generic["rcs_m2"]; !ok {
		t.Errorf("msgpack keys = %v, want rcs_m2", generic)
	}

	var got sample
	if err := UnmarshalMsgpack(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode msgpack: %v", err)
	}
	if got.Name != "T0001" || got.Count != 3 || got.RCS == nil || *got.RCS != 2.5 {
		t.Errorf("decoded %+v, want %+v", got, data)
	}
}

func TestReadJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		max     int64
		wantErr string
	}{
		{"valid", `{"name":"a","count":1}`, DefaultMaxBodyBytes, ""},
		{"unknown fields ignored", `{"name":"a","extra":true}`, DefaultMaxBodyBytes, ""},
		{"empty", ``, DefaultMaxBodyBytes, "empty"},
		{"malformed", `{"name":`, DefaultMaxBodyBytes, "invalid JSON"},
		{"wrong type", `{"count":"three"}`, DefaultMaxBodyBytes, "invalid JSON"},
		{"trailing data", `{"name":"a"} {"name":"b"}`, DefaultMaxBodyBytes, "unexpected data"},
		{"too large", `{"name":"` + strings.Repeat("x", 64) + `"}`, 16, "exceeds 16 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v sample
			err := ReadJSON(httptest.NewRecorder(), r, tt.max, &v)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ReadJSON() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadJSON() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
