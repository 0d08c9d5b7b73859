package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// APIBenchmark fires concurrent requests at one endpoint
type APIBenchmark struct {
	BaseURL     string
	Concurrency int
	Requests    int
	AuthToken   string
	Client      *http.Client
}

// BenchmarkResult summarizes one run
type BenchmarkResult struct {
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	MinTime        time.Duration `json:"min_time"`
	MaxTime        time.Duration `json:"max_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	Errors         []string      `json:"errors"`
}

// RequestResult is the outcome of one request
type RequestResult struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

// NewAPIBenchmark creates a benchmark runner
func NewAPIBenchmark(baseURL string, concurrency, requests int, authToken string) *APIBenchmark {
	return &APIBenchmark{
		BaseURL:     baseURL,
		Concurrency: concurrency,
		Requests:    requests,
		AuthToken:   authToken,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RunGET benchmarks a GET endpoint
func (b *APIBenchmark) RunGET(path string) *BenchmarkResult {
	target := b.BaseURL + path
	return b.runTest(http.MethodGet, target, "", nil)
}

// RunPOST benchmarks a JSON POST endpoint
func (b *APIBenchmark) RunPOST(path string, payload interface{}) *BenchmarkResult {
	target := b.BaseURL + path
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &BenchmarkResult{
			URL:    target,
			Method: http.MethodPost,
			Errors: []string{fmt.Sprintf("JSON encoding error: %v", err)},
		}
	}
	return b.runTest(http.MethodPost, target, "application/json", jsonData)
}

// RunPATCH benchmarks a JSON PATCH endpoint
func (b *APIBenchmark) RunPATCH(path string, payload interface{}) *BenchmarkResult {
	target := b.BaseURL + path
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &BenchmarkResult{
			URL:    target,
			Method: http.MethodPatch,
			Errors: []string{fmt.Sprintf("JSON encoding error: %v", err)},
		}
	}
	return b.runTest(http.MethodPatch, target, "application/json", jsonData)
}

// RunForm benchmarks a form POST endpoint such as the SMS webhook
func (b *APIBenchmark) RunForm(path string, form url.Values) *BenchmarkResult {
	return b.runTest(http.MethodPost, b.BaseURL+path, "application/x-www-form-urlencoded", []byte(form.Encode()))
}

// runTest sends Requests requests with at most Concurrency in flight
func (b *APIBenchmark) runTest(method, target, contentType string, payload []byte) *BenchmarkResult {
	results := make(chan RequestResult, b.Requests)
	var wg sync.WaitGroup
	limiter := make(chan struct{}, b.Concurrency)

	startTime := time.Now()

	for i := 0; i < b.Requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			start := time.Now()
			req, err := http.NewRequest(method, target, bytes.NewReader(payload))
			if err != nil {
				results <- RequestResult{Error: err}
				return
			}

			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			if b.AuthToken != "" {
				req.Header.Set("Authorization", "Bearer "+b.AuthToken)
			}

			resp, err := b.Client.Do(req)
			if err != nil {
				results <- RequestResult{Error: err}
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			results <- RequestResult{
				Duration:   time.Since(start),
				StatusCode: resp.StatusCode,
			}
		}()
	}

	// close once every worker has reported
	go func() {
		wg.Wait()
		close(results)
	}()

	var minTime time.Duration = 1<<63 - 1
	var maxTime time.Duration
	var totalTime time.Duration
	successCount := 0
	failureCount := 0
	statusCodes := make(map[int]int)
	var errs []string

	for result := range results {
		if result.Error != nil {
			failureCount++
			errs = append(errs, result.Error.Error())
			continue
		}

		totalTime += result.Duration
		if result.Duration < minTime {
			minTime = result.Duration
		}
		if result.Duration > maxTime {
			maxTime = result.Duration
		}

		statusCodes[result.StatusCode]++
		if result.StatusCode >= 200 && result.StatusCode < 300 {
			successCount++
		} else {
			failureCount++
		}
	}

	if successCount+failureCount == len(errs) {
		minTime = 0
	}

	totalElapsed := time.Since(startTime)
	requestsPerSec := float64(b.Requests) / totalElapsed.Seconds()
	averageTime := time.Duration(0)
	if successCount+failureCount > 0 {
		averageTime = totalTime / time.Duration(successCount+failureCount)
	}

	return &BenchmarkResult{
		URL:            target,
		Method:         method,
		Concurrency:    b.Concurrency,
		TotalRequests:  b.Requests,
		SuccessCount:   successCount,
		FailureCount:   failureCount,
		TotalTime:      totalElapsed,
		AverageTime:    averageTime,
		MinTime:        minTime,
		MaxTime:        maxTime,
		RequestsPerSec: requestsPerSec,
		StatusCodes:    statusCodes,
		Errors:         errs,
	}
}

// PrintResult writes the summary to stdout
func (r *BenchmarkResult) PrintResult() {
	fmt.Printf("Benchmark result:\n")
	fmt.Printf("URL: %s\n", r.URL)
	fmt.Printf("Method: %s\n", r.Method)
	fmt.Printf("Concurrency: %d\n", r.Concurrency)
	fmt.Printf("Total requests: %d\n", r.TotalRequests)
	fmt.Printf("Succeeded: %d\n", r.SuccessCount)
	fmt.Printf("Failed: %d\n", r.FailureCount)
	fmt.Printf("Total time: %s\n", r.TotalTime)
	fmt.Printf("Average: %s\n", r.AverageTime)
	fmt.Printf("Min: %s\n", r.MinTime)
	fmt.Printf("Max: %s\n", r.MaxTime)
	fmt.Printf("Requests/sec: %.2f\n", r.RequestsPerSec)
	fmt.Printf("Status codes:\n")
	for code, count := range r.StatusCodes {
		fmt.Printf("  %d: %d\n", code, count)
	}
	if len(r.Errors) > 0 {
		fmt.Printf("Errors (first 5):\n")
		for i, err := range r.Errors {
			if i >= 5 {
				fmt.Printf("  ... %d more\n", len(r.Errors)-5)
				break
			}
			fmt.Printf("  %s\n", err)
		}
	}
}
