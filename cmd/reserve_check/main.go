// reserve_check hammers a running server with competing reservations and
// verifies that every contested number ends up with exactly one holder.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"raffle/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type ReserveResult struct {
	HolderID     string        `json:"holder_id"`
	Numbers      []string      `json:"numbers"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

type CheckSuite struct {
	BaseURL string
	Client  *http.Client
	Results []ReserveResult
	mu      sync.Mutex
}

type ticket struct {
	Number string `json:"number"`
	Status string `json:"status"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base url")
	clients := flag.Int("clients", 50, "concurrent holders per round")
	rounds := flag.Int("rounds", 5, "number of contested rounds")
	redisAddr := flag.String("redis", "", "optional redis address to inspect request keys")
	flag.Parse()

	suite := &CheckSuite{
		BaseURL: *baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("Starting reservation race check...")
	fmt.Println("==================================")

	available, err := suite.availableNumbers()
	if err != nil {
		log.Fatalf("failed to list numbers: %v", err)
	}
	if len(available) < *rounds*2 {
		log.Fatalf("need at least %d available numbers, found %d", *rounds*2, len(available))
	}

	failures := 0
	for round := 0; round < *rounds; round++ {
		// every holder asks for the same pair
		numbers := []string{available[round*2], available[round*2+1]}
		winners := suite.contest(numbers, *clients)

		fmt.Printf("\nRound %d %v: %d winner(s)\n", round+1, numbers, winners)
		if winners != 1 {
			failures++
			fmt.Printf("   expected exactly one winner\n")
		}
	}

	suite.generateReport()

	if *redisAddr != "" {
		if err := inspectRedis(*redisAddr); err != nil {
			fmt.Printf("\nRedis inspection failed: %v\n", err)
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d round(s) double booked or lost numbers\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nReservation race check passed")
}

func (s *CheckSuite) availableNumbers() ([]string, error) {
	resp, err := s.Client.Get(s.BaseURL + "/available_numbers")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list []ticket
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode available numbers: %w", err)
	}

	var out []string
	for _, t := range list {
		if t.Status == "available" {
			out = append(out, t.Number)
		}
	}
	return out, nil
}

// contest fires n simultaneous reservations for numbers and returns how many
// succeeded
func (s *CheckSuite) contest(numbers []string, n int) int {
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan ReserveResult, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- s.reserve(uuid.New().String(), numbers)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	winners := 0
	for r := range results {
		if r.Success {
			winners++
		}
		s.mu.Lock()
		s.Results = append(s.Results, r)
		s.mu.Unlock()
	}
	return winners
}

func (s *CheckSuite) reserve(holderID string, numbers []string) ReserveResult {
	payload, _ := json.Marshal(map[string]interface{}{
		"holderId": holderID,
		"numbers":  numbers,
	})

	start := time.Now()
	resp, err := s.Client.Post(s.BaseURL+"/reserve_numbers", "application/json", bytes.NewReader(payload))
	if err != nil {
		return ReserveResult{HolderID: holderID, Numbers: numbers, ResponseTime: time.Since(start), Error: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	result := ReserveResult{
		HolderID:     holderID,
		Numbers:      numbers,
		StatusCode:   resp.StatusCode,
		ResponseTime: time.Since(start),
		Success:      resp.StatusCode == http.StatusOK,
	}
	if !result.Success {
		result.Error = string(body)
	}
	return result
}

func (s *CheckSuite) generateReport() {
	var total, rejected, limited, failed int
	var slowest time.Duration
	for _, r := range s.Results {
		total++
		switch {
		case r.StatusCode == http.StatusBadRequest:
			rejected++
		case r.StatusCode == http.StatusTooManyRequests:
			limited++
		case r.StatusCode == 0 || r.StatusCode >= 500:
			failed++
		}
		if r.ResponseTime > slowest {
			slowest = r.ResponseTime
		}
	}

	fmt.Println("\nSummary")
	fmt.Println("=======")
	fmt.Printf("Requests:      %d\n", total)
	fmt.Printf("Refused (400): %d\n", rejected)
	fmt.Printf("Rate limited:  %d\n", limited)
	fmt.Printf("Failed:        %d\n", failed)
	fmt.Printf("Slowest:       %v\n", slowest)
}

func inspectRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}

	for _, prefix := range []string{constants.CACHE_KEY_RATE_LIMIT, constants.CACHE_KEY_IDEMPOTENCY} {
		var count int
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			count++
		}
		if err := iter.Err(); err != nil {
			return err
		}
		fmt.Printf("Redis keys %-20s %d\n", prefix+"*", count)
	}
	return nil
}
