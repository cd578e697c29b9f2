package model

import (
	"strings"
	"time"
)

// Link represents a shortened URL entry as served by the TinyLink API
type Link struct {
	Code        string     `json:"code"`
	LongURL     string     `json:"long_url"`
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"last_clicked"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	TodayClicks *int64     `json:"today_clicks,omitempty"`
	WeekClicks  *int64     `json:"week_clicks,omitempty"`
}

// CreateLinkRequest is the body sent to POST /api/links
type CreateLinkRequest struct {
	LongURL string `json:"long_url"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse is the error payload returned by the API
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health is the status reported by GET /healthz
type Health struct {
	OK          bool      `json:"ok"`
	Version     string    `json:"version"`
	Uptime      string    `json:"uptime"`
	LastChecked time.Time `json:"-"`
}

// ShortURL joins the public base address and a code with a single slash
func ShortURL(base, code string) string {
	return strings.TrimRight(base, "/") + "/" + code
}
