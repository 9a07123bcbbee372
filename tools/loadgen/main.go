// Command loadgen drives synthetic shopper traffic against a running
// Online Kart backend. Each worker registers its own account and then
// loops through a browse/add-to-cart/checkout scenario, reusing product
// identifiers harvested from earlier responses.
//
// Usage:
//
//	loadgen -base-url http://localhost:8080 -workers 8 -duration 60s
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/onlinekart/tools/loadgen/internal/pool"
)

type options struct {
	baseURL       string
	workers       int
	duration      time.Duration
	think         time.Duration
	checkoutEvery int
	poolSize      int
	seed          int64
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "backend base URL")
	flag.IntVar(&opts.workers, "workers", 4, "number of concurrent shoppers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "how long to run")
	flag.DurationVar(&opts.think, "think", 100*time.Millisecond, "pause between requests per shopper")
	flag.IntVar(&opts.checkoutEvery, "checkout-every", 8, "check out once per this many iterations")
	flag.IntVar(&opts.poolSize, "pool-size", 256, "harvested values kept per kind")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	values := pool.New(opts.poolSize, opts.seed)
	defer values.Close()

	recorder := newRecorder()
	client := &http.Client{Timeout: 15 * time.Second}
	runID := fmt.Sprintf("%06d", rand.New(rand.NewSource(opts.seed)).Intn(1000000))
	deadline := time.Now().Add(opts.duration)

	log.Printf("starting %d shoppers against %s for %s (run %s)",
		opts.workers, opts.baseURL, opts.duration, runID)

	var wg sync.WaitGroup
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			s := &shopper{
				client:   client,
				baseURL:  opts.baseURL + "/api",
				values:   values,
				recorder: recorder,
				rng:      rand.New(rand.NewSource(opts.seed + int64(w))),
				username: fmt.Sprintf("loadgen-%s-%d", runID, w),
			}
			s.run(deadline, opts.think, opts.checkoutEvery)
		}(w)
	}
	wg.Wait()

	recorder.report(os.Stdout)
	stats := values.Stats()
	fmt.Printf("\nvalue pool: %d adds, %d hits, %d misses, %d replaced\n",
		stats.Adds, stats.Hits, stats.Misses, stats.Replaced)

	if recorder.errorCount() > 0 {
		os.Exit(1)
	}
}

// shopper is one synthetic customer with its own account and token.
type shopper struct {
	client   *http.Client
	baseURL  string
	values   *pool.ValuePool
	recorder *recorder
	rng      *rand.Rand
	username string
	token    string
}

func (s *shopper) run(deadline time.Time, think time.Duration, checkoutEvery int) {
	if err := s.signUp(); err != nil {
		log.Printf("%s: signup failed: %v", s.username, err)
		return
	}

	for i := 0; time.Now().Before(deadline); i++ {
		s.browseProducts()
		if slug, ok := s.values.Random(pool.KindProductSlug); ok {
			s.viewProduct(slug)
		}
		if s.rng.Intn(5) == 0 {
			s.browseCategories()
		}
		if id, ok := s.values.Random(pool.KindProductID); ok {
			s.addToCart(id)
		}
		if checkoutEvery > 0 && i%checkoutEvery == checkoutEvery-1 {
			s.checkout()
			s.listOrders()
		}
		time.Sleep(think)
	}
}

func (s *shopper) signUp() error {
	_, _, err := s.do(http.MethodPost, "/auth/register/", map[string]any{
		"username": s.username,
		"email":    s.username + "@loadgen.invalid",
		"password": "loadgen-secret",
	}, "register")
	if err != nil {
		return err
	}

	_, body, err := s.do(http.MethodPost, "/auth/login/", map[string]any{
		"username": s.username,
		"password": "loadgen-secret",
	}, "login")
	if err != nil {
		return err
	}

	var resp struct {
		Data struct {
			Token struct {
				AccessToken string `json:"access_token"`
			} `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if resp.Data.Token.AccessToken == "" {
		return fmt.Errorf("login returned no access token")
	}
	s.token = resp.Data.Token.AccessToken
	return nil
}

func (s *shopper) browseProducts() {
	page := 1 + s.rng.Intn(3)
	_, body, err := s.do(http.MethodGet,
		fmt.Sprintf("/products/?page=%d&page_size=20", page), nil, "list products")
	if err != nil {
		return
	}

	var resp struct {
		Data []struct {
			ID   string `json:"id"`
			Slug string `json:"slug"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	for _, p := range resp.Data {
		s.values.Add(pool.KindProductID, p.ID)
		s.values.Add(pool.KindProductSlug, p.Slug)
	}
}

func (s *shopper) browseCategories() {
	_, body, err := s.do(http.MethodGet, "/categories/", nil, "list categories")
	if err != nil {
		return
	}

	var resp struct {
		Data []struct {
			Slug string `json:"slug"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	for _, c := range resp.Data {
		s.values.Add(pool.KindCategorySlug, c.Slug)
	}
}

func (s *shopper) viewProduct(slug string) {
	s.do(http.MethodGet, "/products/"+slug+"/", nil, "get product")
}

func (s *shopper) addToCart(productID string) {
	s.do(http.MethodPost, "/cart/add_item/", map[string]any{
		"product_id": productID,
		"quantity":   1 + s.rng.Intn(3),
	}, "add to cart")
}

func (s *shopper) checkout() {
	status, body, err := s.do(http.MethodPost, "/cart/checkout/", map[string]any{
		"shipping_address": "1 Loadgen Way, Testville",
	}, "checkout")
	if err != nil || status != http.StatusCreated {
		return
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		s.values.Add(pool.KindOrderID, resp.Data.ID)
	}
}

func (s *shopper) listOrders() {
	s.do(http.MethodGet, "/orders/", nil, "list orders")
}

// do performs one request, records its latency and outcome, and returns
// the status code and body. Stock conflicts during checkout (422) are
// expected under load and are not counted as errors.
func (s *shopper) do(method, path string, payload any, op string) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		s.recorder.record(op, elapsed, true)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.recorder.record(op, elapsed, true)
		return resp.StatusCode, nil, err
	}

	failed := resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity
	s.recorder.record(op, elapsed, failed)
	if failed {
		return resp.StatusCode, body, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

// recorder aggregates latencies and error counts per operation.
type recorder struct {
	mu     sync.Mutex
	timing map[string][]time.Duration
	errors map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		timing: make(map[string][]time.Duration),
		errors: make(map[string]int),
	}
}

func (r *recorder) record(op string, d time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timing[op] = append(r.timing[op], d)
	if failed {
		r.errors[op]++
	}
}

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.errors {
		total += n
	}
	return total
}

func (r *recorder) report(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops := make([]string, 0, len(r.timing))
	for op := range r.timing {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Fprintf(w, "\n%-18s %8s %8s %10s %10s %10s\n",
		"operation", "count", "errors", "p50", "p95", "p99")
	for _, op := range ops {
		samples := append([]time.Duration(nil), r.timing[op]...)
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		fmt.Fprintf(w, "%-18s %8d %8d %10s %10s %10s\n",
			op, len(samples), r.errors[op],
			percentile(samples, 50), percentile(samples, 95), percentile(samples, 99))
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx].Round(time.Millisecond / 10)
}
