package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/domain/calendar"
)

func newCalendarEngine() *gin.Engine {
	fixed := time.Date(2025, time.March, 21, 10, 0, 0, 0, time.Local)
	h := NewCalendarHandler(calendar.NewConverter(calendar.ClockFunc(func() time.Time { return fixed })))
	engine := newEngine()
	engine.GET("/calendar/to-persian", h.ToPersian)
	engine.GET("/calendar/to-gregorian", h.ToGregorian)
	engine.GET("/calendar/today", h.Today)
	return engine
}

func TestCalendarHandler_Convert(t *testing.T) {
	engine := newCalendarEngine()

	tests := []struct {
		name string
		path string
		want ConvertDateResponse
	}{
		{
			name: "to persian",
			path: "/calendar/to-persian?date=2024-03-20",
			want: ConvertDateResponse{Input: "2024-03-20", Result: "1403-01-01", ResultPersian: "۱۴۰۳-۰۱-۰۱", OK: true},
		},
		{
			name: "to gregorian",
			path: "/calendar/to-gregorian?date=1403-12-30",
			want: ConvertDateResponse{Input: "1403-12-30", Result: "2025-03-20", OK: true},
		},
		{
			name: "invalid date is not an error",
			path: "/calendar/to-gregorian?date=1402-12-30",
			want: ConvertDateResponse{Input: "1402-12-30"},
		},
		{
			name: "empty date",
			path: "/calendar/to-persian?date=",
			want: ConvertDateResponse{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ConvertDateResponse
			w := performRequest(engine, http.MethodGet, tt.path, nil, nil)
			resp := decode(t, w, &got)

			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing parameter", func(t *testing.T) {
		w := performRequest(engine, http.MethodGet, "/calendar/to-persian", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCalendarHandler_Today(t *testing.T) {
	var got TodayResponse
	w := performRequest(newCalendarEngine(), http.MethodGet, "/calendar/today", nil, nil)
	decode(t, w, &got)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, TodayResponse{Gregorian: "2025-03-21", Persian: "1404-01-01", PersianDigits: "۱۴۰۴-۰۱-۰۱"}, got)
}
