package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/ventil-api/internal/config"
	"github.com/ksred/ventil-api/internal/database"
	"github.com/ksred/ventil-api/internal/server"
)

const (
	numOwners          = 12
	possessionsPerUser = 4
	minTrades          = 15
	maxTrades          = 120
	numWorkers         = 5
	serverPort         = "8089"
	serverAddress      = "http://localhost:" + serverPort
)

var itemTypes = []string{"sword", "shield", "potion", "map", "lantern", "rope"}

func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate returns min, max, mean, median, p95 and p99 of the recorded durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// apiError is a non 2xx response decoded from the error envelope
type apiError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d %s: %s", e.Status, e.Code, e.Message)
}

// simulationClient talks to the barter API and records per route timings
type simulationClient struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	stats map[string]*routeStats
}

func newSimulationClient() *simulationClient {
	return &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"owner":      {name: "Create Owner"},
			"item":       {name: "Create Item"},
			"possession": {name: "Create Possession"},
			"trade":      {name: "Create Trade"},
			"add_item":   {name: "Add Item"},
			"accept":     {name: "Accept"},
			"execution":  {name: "Get Execution"},
			"cancel":     {name: "Cancel Trade"},
		},
	}
}

// do sends body as JSON and decodes the data field of the envelope into out
func (sc *simulationClient) do(route, method, path string, body, out interface{}) (int, error) {
	start := time.Now()
	status, err := sc.send(method, path, body, out)

	sc.mu.Lock()
	stats := sc.stats[route]
	stats.addDuration(time.Since(start))
	if err != nil {
		stats.failures++
	}
	sc.mu.Unlock()

	return status, err
}

func (sc *simulationClient) send(method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *apiError       `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if !envelope.Success {
		apiErr := envelope.Error
		if apiErr == nil {
			apiErr = &apiError{}
		}
		apiErr.Status = resp.StatusCode
		return resp.StatusCode, apiErr
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type idResponse struct {
	ID uint `json:"id"`
}

type possessionResponse struct {
	ID       uint   `json:"id"`
	OwnerID  uint   `json:"owner_id"`
	ItemID   uint   `json:"item_id"`
	ItemType string `json:"item_type"`
}

type acceptResponse struct {
	Executed  bool `json:"executed"`
	Execution *struct {
		ExecutionID string `json:"execution_id"`
		Trader1Gave []uint `json:"trader_1_gave"`
		Trader2Gave []uint `json:"trader_2_gave"`
		Skipped     []uint `json:"skipped"`
	} `json:"execution"`
}

func (sc *simulationClient) createOwner() (uint, error) {
	var out idResponse
	_, err := sc.do("owner", http.MethodPost, "/api/v1/owners", nil, &out)
	return out.ID, err
}

func (sc *simulationClient) createItem(itemType string) (uint, error) {
	var out idResponse
	_, err := sc.do("item", http.MethodPost, "/api/v1/items", map[string]string{"item_type": itemType}, &out)
	return out.ID, err
}

func (sc *simulationClient) createPossession(ownerID, itemID uint) (uint, error) {
	var out possessionResponse
	_, err := sc.do("possession", http.MethodPost, "/api/v1/possessions",
		map[string]uint{"owner_id": ownerID, "item_id": itemID}, &out)
	return out.ID, err
}

func (sc *simulationClient) ownerPossessions(ownerID uint) ([]possessionResponse, error) {
	var out []possessionResponse
	_, err := sc.send(http.MethodGet, fmt.Sprintf("/api/v1/possessions/owner/%d", ownerID), nil, &out)
	return out, err
}

func (sc *simulationClient) createTrade(trader1, trader2 uint) (uint64, error) {
	var out struct {
		ID uint64 `json:"id"`
	}
	_, err := sc.do("trade", http.MethodPost, "/api/v1/trades",
		map[string]uint{"trader_1_id": trader1, "trader_2_id": trader2}, &out)
	return out.ID, err
}

func (sc *simulationClient) addItem(tradeID uint64, ownerID, possessionID uint) error {
	_, err := sc.do("add_item", http.MethodPost, fmt.Sprintf("/api/v1/trades/%d/add-item", tradeID),
		map[string]uint{"owner_id": ownerID, "item_id": possessionID}, nil)
	return err
}

func (sc *simulationClient) accept(tradeID uint64, ownerID uint) (*acceptResponse, error) {
	var out acceptResponse
	_, err := sc.do("accept", http.MethodPut, fmt.Sprintf("/api/v1/trades/%d/accept?owner_id=%d", tradeID, ownerID), nil, &out)
	return &out, err
}

func (sc *simulationClient) getExecution(executionID string) error {
	_, err := sc.do("execution", http.MethodGet, "/api/v1/executions/"+executionID, nil, nil)
	return err
}

func (sc *simulationClient) cancel(tradeID uint64) error {
	_, err := sc.do("cancel", http.MethodDelete, fmt.Sprintf("/api/v1/trades/%d", tradeID), nil, nil)
	return err
}

func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	keys := make([]string, 0, len(sc.stats))
	for k := range sc.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		stats := sc.stats[k]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// simulationStats aggregates trade outcomes across workers
type simulationStats struct {
	mu             sync.Mutex
	Attempted      int
	Executed       int
	Rejected       int
	Cancelled      int
	Failed         int
	ItemsSwapped   int
	SkippedOffered int
}

func (s *simulationStats) add(fn func(s *simulationStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// main starts an in-memory server and runs concurrent barter workers against it
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	time.Sleep(2 * time.Second)

	sc := newSimulationClient()

	owners, err := seedInventory(sc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed inventory")
	}
	log.Info().Int("owners", len(owners)).Msg("Inventory seeded")

	targetTrades := rand.Intn(maxTrades-minTrades) + minTrades
	log.Info().Int("target_trades", targetTrades).Msg("Starting simulation")

	stats := &simulationStats{}
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runTrades(workerID, targetTrades/numWorkers, sc, owners, stats)
		}(i)
	}
	wg.Wait()

	duration := time.Since(start)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BARTER SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
Trade Statistics
----------------
Attempted:        %d
Executed:         %d
Cancelled:        %d
Rejected:         %d
Failed:           %d
Items swapped:    %d
Skipped offers:   %d
Duration:         %v
`, stats.Attempted, stats.Executed, stats.Cancelled, stats.Rejected, stats.Failed,
		stats.ItemsSwapped, stats.SkippedOffered, duration.Round(time.Millisecond))

	fmt.Println("\nPossessions per owner")
	fmt.Println("---------------------")
	for _, ownerID := range owners {
		possessions, err := sc.ownerPossessions(ownerID)
		if err != nil {
			log.Error().Err(err).Uint("owner_id", ownerID).Msg("Failed to list possessions")
			continue
		}
		fmt.Printf("owner %-4d: %s (%d)\n", ownerID, strings.Repeat("#", len(possessions)), len(possessions))
	}
	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := 0.0
	if stats.Attempted > 0 {
		successRate = float64(stats.Executed) / float64(stats.Attempted) * 100
	}
	log.Info().
		Float64("success_rate", successRate).
		Int("attempted", stats.Attempted).
		Int("executed", stats.Executed).
		Dur("duration", duration).
		Msg("Simulation completed")

	sc.printPerformanceStats()
}

// seedInventory creates owners each holding a handful of possessions
func seedInventory(sc *simulationClient) ([]uint, error) {
	itemIDs := make([]uint, 0, len(itemTypes))
	for _, itemType := range itemTypes {
		id, err := sc.createItem(itemType)
		if err != nil {
			return nil, fmt.Errorf("create item %s: %w", itemType, err)
		}
		itemIDs = append(itemIDs, id)
	}

	owners := make([]uint, 0, numOwners)
	for i := 0; i < numOwners; i++ {
		ownerID, err := sc.createOwner()
		if err != nil {
			return nil, fmt.Errorf("create owner: %w", err)
		}
		for j := 0; j < possessionsPerUser; j++ {
			if _, err := sc.createPossession(ownerID, itemIDs[rand.Intn(len(itemIDs))]); err != nil {
				return nil, fmt.Errorf("create possession for owner %d: %w", ownerID, err)
			}
		}
		owners = append(owners, ownerID)
	}
	return owners, nil
}

// runTrades negotiates numTrades random trades between random owner pairs.
// Workers race each other, so offers regularly go stale and get rejected.
func runTrades(workerID, numTrades int, sc *simulationClient, owners []uint, stats *simulationStats) {
	logger := log.With().Int("worker_id", workerID).Logger()

	for i := 0; i < numTrades; i++ {
		stats.add(func(s *simulationStats) { s.Attempted++ })

		a := owners[rand.Intn(len(owners))]
		b := owners[rand.Intn(len(owners))]
		for b == a {
			b = owners[rand.Intn(len(owners))]
		}

		tradeID, err := sc.createTrade(a, b)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create trade")
			stats.add(func(s *simulationStats) { s.Failed++ })
			continue
		}
		tradeLogger := logger.With().Uint64("trade_id", tradeID).Logger()

		if err := offerRandomPossession(sc, tradeID, a); err != nil {
			tradeLogger.Warn().Err(err).Uint("owner_id", a).Msg("Offer rejected")
		}
		if err := offerRandomPossession(sc, tradeID, b); err != nil {
			tradeLogger.Warn().Err(err).Uint("owner_id", b).Msg("Offer rejected")
		}

		// Roughly one in five negotiations is abandoned
		if rand.Intn(5) == 0 {
			if err := sc.cancel(tradeID); err != nil {
				tradeLogger.Error().Err(err).Msg("Failed to cancel trade")
				stats.add(func(s *simulationStats) { s.Failed++ })
				continue
			}
			stats.add(func(s *simulationStats) { s.Cancelled++ })
			continue
		}

		if _, err := sc.accept(tradeID, a); err != nil {
			tradeLogger.Error().Err(err).Msg("Failed to accept trade")
			stats.add(func(s *simulationStats) { s.Rejected++ })
			continue
		}
		result, err := sc.accept(tradeID, b)
		if err != nil {
			tradeLogger.Error().Err(err).Msg("Failed to accept trade")
			stats.add(func(s *simulationStats) { s.Rejected++ })
			sc.cancel(tradeID)
			continue
		}
		if !result.Executed || result.Execution == nil {
			tradeLogger.Error().Msg("Trade not executed after both sides accepted")
			stats.add(func(s *simulationStats) { s.Failed++ })
			continue
		}

		exec := result.Execution
		stats.add(func(s *simulationStats) {
			s.Executed++
			s.ItemsSwapped += len(exec.Trader1Gave) + len(exec.Trader2Gave)
			s.SkippedOffered += len(exec.Skipped)
		})

		if err := sc.getExecution(exec.ExecutionID); err != nil {
			tradeLogger.Error().Err(err).Str("execution_id", exec.ExecutionID).Msg("Execution record missing")
		}

		tradeLogger.Info().
			Str("execution_id", exec.ExecutionID).
			Int("trader_1_gave", len(exec.Trader1Gave)).
			Int("trader_2_gave", len(exec.Trader2Gave)).
			Msg("Trade executed")

		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

func offerRandomPossession(sc *simulationClient, tradeID uint64, ownerID uint) error {
	possessions, err := sc.ownerPossessions(ownerID)
	if err != nil {
		return err
	}
	if len(possessions) == 0 {
		return nil
	}
	p := possessions[rand.Intn(len(possessions))]
	return sc.addItem(tradeID, ownerID, p.ID)
}

// startServer runs the API on an in-memory database
func startServer() error {
	gin.SetMode(gin.ReleaseMode)

	cfg := config.Default()
	cfg.Port = serverPort
	cfg.DatabasePath = ":memory:"
	cfg.RateLimitPerMinute = 0

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		return err
	}
	srv.StartBackground(context.Background())

	return srv.Router.Run(":" + cfg.Port)
}
