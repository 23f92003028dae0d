package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Intent is the request body for POST /users/:userId/intents
type Intent struct {
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
	Domain string `json:"domain"`
}

// QueueStatus mirrors GET /queue/status
type QueueStatus struct {
	QueueLength int  `json:"queueLength"`
	Capacity    int  `json:"capacity"`
	Processing  bool `json:"processing"`
}

// AccountDetails holds the fields of GET /users/:userId the report needs
type AccountDetails struct {
	UserID          uint64 `json:"userId"`
	InternalBalance string `json:"internalBalance"`
}

// TestStats contains aggregated test statistics
type TestStats struct {
	Accepted      int
	Saturated     int
	Rejected      int
	Errors        int
	ResponseTimes []time.Duration
	StatusCounts  map[int]int
	Lock          sync.Mutex
}

func (s *TestStats) record(status int, elapsed time.Duration, err error) {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	s.ResponseTimes = append(s.ResponseTimes, elapsed)
	if err != nil {
		s.Errors++
		return
	}
	s.StatusCounts[status]++
	switch {
	case status == http.StatusAccepted:
		s.Accepted++
	case status == http.StatusServiceUnavailable:
		s.Saturated++
	default:
		s.Rejected++
	}
}

func main() {
	concurrency := flag.Int("c", 10, "Number of concurrent goroutines")
	totalRequests := flag.Int("n", 100, "Total number of withdraw intents to submit")
	userID := flag.Uint64("u", 1, "User to withdraw from")
	amount := flag.String("amount", "1", "Amount of each withdrawal")
	seed := flag.String("seed", "", "Deposit this amount before the run (empty to skip)")
	baseURL := flag.String("url", "http://localhost:8080", "Base URL for the API")
	wait := flag.Duration("wait", 30*time.Second, "How long to wait for the queue to drain after the run")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	intentURL := fmt.Sprintf("%s/users/%d/intents", *baseURL, *userID)

	if *seed != "" {
		status, err := post(client, intentURL, Intent{Kind: "deposit", Amount: *seed, Domain: "internal"})
		if err != nil || status != http.StatusAccepted {
			fmt.Printf("Seed deposit failed: status=%d err=%v\n", status, err)
			return
		}
		waitForDrain(client, *baseURL, *wait)
	}

	fmt.Printf("Submitting %d withdrawals of %s for user %d with %d workers\n",
		*totalRequests, *amount, *userID, *concurrency)

	stats := &TestStats{StatusCounts: make(map[int]int)}
	jobs := make(chan struct{})
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				began := time.Now()
				status, err := post(client, intentURL, Intent{Kind: "withdraw", Amount: *amount, Domain: "internal"})
				stats.record(status, time.Since(began), err)
			}
		}()
	}
	for i := 0; i < *totalRequests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	printReport(stats, elapsed)

	waitForDrain(client, *baseURL, *wait)
	var details AccountDetails
	if err := getJSON(client, fmt.Sprintf("%s/users/%d", *baseURL, *userID), &details); err != nil {
		fmt.Printf("Could not read final balance: %v\n", err)
		return
	}
	fmt.Printf("Final internal balance of user %d: %s\n", details.UserID, details.InternalBalance)
}

func post(client *http.Client, url string, body any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// waitForDrain polls the queue until it is empty and idle or the timeout passes
func waitForDrain(client *http.Client, baseURL string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var status QueueStatus
		if err := getJSON(client, baseURL+"/queue/status", &status); err == nil &&
			status.QueueLength == 0 && !status.Processing {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Println("Queue did not drain before the timeout")
}

func printReport(stats *TestStats, elapsed time.Duration) {
	stats.Lock.Lock()
	defer stats.Lock.Unlock()

	total := len(stats.ResponseTimes)
	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Requests:  %d in %v (%.1f req/s)\n", total, elapsed, float64(total)/elapsed.Seconds())
	fmt.Printf("Accepted:  %d\n", stats.Accepted)
	fmt.Printf("Saturated: %d\n", stats.Saturated)
	fmt.Printf("Rejected:  %d\n", stats.Rejected)
	fmt.Printf("Errors:    %d\n", stats.Errors)

	if total == 0 {
		return
	}
	times := append([]time.Duration(nil), stats.ResponseTimes...)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	var sum time.Duration
	for _, t := range times {
		sum += t
	}
	fmt.Printf("Latency:   min=%v avg=%v p95=%v max=%v\n",
		times[0], sum/time.Duration(total), times[total*95/100], times[total-1])

	codes := make([]int, 0, len(stats.StatusCounts))
	for code := range stats.StatusCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  HTTP %d: %d\n", code, stats.StatusCounts[code])
	}
}
