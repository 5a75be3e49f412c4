package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/domain/warranty"
	"github.com/marv/gateway/internal/infrastructure/cache"
	"github.com/marv/gateway/internal/infrastructure/marvapi"
	"github.com/marv/gateway/internal/infrastructure/session"
	"github.com/marv/gateway/internal/interfaces/http/dto"
	"github.com/marv/gateway/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// fakeUpstream is an in-memory warranty backend
type fakeUpstream struct {
	mu        sync.Mutex
	devices   map[string]warranty.Device
	repairs   map[int64][]warranty.Repair
	tests     []warranty.TestRecord
	bulkCalls int
	failBulk  bool
	token     string

	sessionsCleared int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		devices: make(map[string]warranty.Device),
		repairs: make(map[int64][]warranty.Repair),
		token:   "upstream-token",
	}
}

func (f *fakeUpstream) addDevice(d warranty.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[d.SerialNumber] = d
}

func (f *fakeUpstream) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+f.token
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": f.token, "token_type": "bearer"})
	})
	mux.HandleFunc("GET /api/accounts/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, warranty.Account{ID: 1, Username: "admin", Role: warranty.AccountRoleAdmin})
	})
	mux.HandleFunc("GET /api/accounts/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /api/accounts/clearsessions", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		f.mu.Lock()
		f.sessionsCleared++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/devices/serial/{serial}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		d, ok := f.devices[r.PathValue("serial")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Device not found"})
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
	mux.HandleFunc("POST /api/devices/bulk", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bulkCalls++
		if f.failBulk {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Serial SN0002 already exists"})
			return
		}
		var devices []warranty.Device
		_ = json.NewDecoder(r.Body).Decode(&devices)
		for i := range devices {
			devices[i].ID = int64(len(f.devices) + 1)
			f.devices[devices[i].SerialNumber] = devices[i]
		}
		writeJSON(w, http.StatusCreated, devices)
	})
	mux.HandleFunc("GET /api/devices", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		devices := make([]warranty.Device, 0, len(f.devices))
		for _, d := range f.devices {
			devices = append(devices, d)
		}
		writeJSON(w, http.StatusOK, devices)
	})

	mux.HandleFunc("GET /api/repairs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := strconv.ParseInt(r.URL.Query().Get("device_id"), 10, 64)
		repairs := f.repairs[id]
		if repairs == nil {
			repairs = []warranty.Repair{}
		}
		writeJSON(w, http.StatusOK, repairs)
	})
	mux.HandleFunc("POST /api/tests", func(w http.ResponseWriter, r *http.Request) {
		var test warranty.TestRecord
		_ = json.NewDecoder(r.Body).Decode(&test)
		f.mu.Lock()
		test.ID = int64(len(f.tests) + 1)
		f.tests = append(f.tests, test)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, test)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newUpstreamClient starts upstream and returns a client reading tokens from
// the session found in the request context, plus that session store.
func newUpstreamClient(t *testing.T, upstream *fakeUpstream) (*marvapi.Client, *session.Store) {
	t.Helper()
	server := httptest.NewServer(upstream.handler())
	t.Cleanup(server.Close)

	store := session.NewStore(cache.NewInMemoryStore(), time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	client, err := marvapi.New(
		marvapi.Config{BaseURL: server.URL + "/api"},
		marvapi.WithTokenSource(session.NewProvider(store)),
	)
	require.NoError(t, err)
	return client, store
}

func newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Session())
	return engine
}

func performRequest(engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope, decoding data into out when out is non-nil
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
		Meta    *dto.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}

func decodeJSON(data []byte, out any) error {
	return json.Unmarshal(data, out)
}
