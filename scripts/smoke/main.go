// Command smoke drives a running instance through the core attendance flow
// and reports per-step results. Intended for deploy verification; it writes
// to the roster, so point it at a disposable environment.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type step struct {
	Name       string
	Method     string
	Path       string
	Body       string
	WantStatus int
}

func main() {
	var (
		base    string
		prefix  string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	suffix := time.Now().Format("150405")
	studentID := "SMOKE-" + suffix
	registerBody := fmt.Sprintf(`{"student_id":%q,"name":"Smoke Test %s","subscription_type":"squad"}`, studentID, suffix)
	checkinBody := fmt.Sprintf(`{"code":%q}`, studentID)

	steps := []step{
		{Name: "health", Method: http.MethodGet, Path: "/health", WantStatus: http.StatusOK},
		{Name: "ready", Method: http.MethodGet, Path: "/ready", WantStatus: http.StatusOK},
		{Name: "register student", Method: http.MethodPost, Path: prefix + "/students", Body: registerBody, WantStatus: http.StatusCreated},
		{Name: "duplicate rejected", Method: http.MethodPost, Path: prefix + "/students", Body: registerBody, WantStatus: http.StatusConflict},
		{Name: "check-in", Method: http.MethodPost, Path: prefix + "/checkins", Body: checkinBody, WantStatus: http.StatusCreated},
		{Name: "second check-in rejected", Method: http.MethodPost, Path: prefix + "/checkins", Body: checkinBody, WantStatus: http.StatusConflict},
		{Name: "unknown code rejected", Method: http.MethodPost, Path: prefix + "/checkins", Body: `{"code":"SMOKE-UNKNOWN"}`, WantStatus: http.StatusNotFound},
		{Name: "today listing", Method: http.MethodGet, Path: prefix + "/attendance/today", WantStatus: http.StatusOK},
		{Name: "summary", Method: http.MethodGet, Path: prefix + "/attendance/summary", WantStatus: http.StatusOK},
		{Name: "csv export", Method: http.MethodPost, Path: prefix + "/exports/attendance", Body: `{"format":"csv"}`, WantStatus: http.StatusCreated},
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	for _, s := range steps {
		status, body, err := run(client, base, s)
		if err != nil {
			failures++
			log.Printf("FAIL %-25s %v", s.Name, err)
			continue
		}
		if status != s.WantStatus {
			failures++
			log.Printf("FAIL %-25s got %d want %d: %s", s.Name, status, s.WantStatus, truncate(body, 160))
			continue
		}
		log.Printf("ok   %-25s %d", s.Name, status)
	}

	if failures > 0 {
		log.Printf("%d of %d steps failed", failures, len(steps))
		os.Exit(1)
	}
	log.Printf("all %d steps passed", len(steps))
}

func run(client *http.Client, base string, s step) (int, string, error) {
	var reqBody io.Reader
	if s.Body != "" {
		reqBody = bytes.NewBufferString(s.Body)
	}
	req, err := http.NewRequest(s.Method, base+s.Path, reqBody)
	if err != nil {
		return 0, "", err
	}
	if s.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
