// Package race sends bursts of simultaneous requests and tallies how the
// target answered them.
package race

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/httpclient"
)

// Tally counts responses by class. Succeeded excludes 429 responses;
// Failed counts requests that got no response at all.
type Tally struct {
	Total     int
	Succeeded int
	Blocked   int
	Failed    int
}

// AllSucceeded reports whether every request got a non-429 response.
func (t Tally) AllSucceeded() bool {
	return t.Total > 0 && t.Succeeded == t.Total
}

// Ratio returns Succeeded/n, where n is the number of attempts planned.
func (t Tally) Ratio(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(t.Succeeded) / float64(n)
}

func (t Tally) String() string {
	return fmt.Sprintf("%d/%d succeeded, %d blocked, %d failed", t.Succeeded, t.Total, t.Blocked, t.Failed)
}

// Add classifies one outcome. success decides what counts as accepted for
// a response that is not 429; nil accepts any response.
func (t *Tally) Add(out httpclient.Outcome, success func(httpclient.Outcome) bool) {
	t.Total++
	switch {
	case !out.OK():
		t.Failed++
	case out.Status() == http.StatusTooManyRequests:
		t.Blocked++
	case success == nil || success(out):
		t.Succeeded++
	}
}

// Analyze tallies a set of outcomes where any non-429 response succeeds.
func Analyze(outcomes []httpclient.Outcome) Tally {
	var t Tally
	for _, out := range outcomes {
		t.Add(out, nil)
	}
	return t
}

// Tester sends concurrent bursts.
type Tester struct {
	client         *httpclient.Client
	maxConcurrency int
}

// NewTester creates a tester. maxConcurrency <= 0 uses the parallel probe
// size.
func NewTester(client *httpclient.Client, maxConcurrency int) *Tester {
	if maxConcurrency <= 0 {
		maxConcurrency = defaults.ConcurrencyParallelProbe
	}
	if client == nil {
		client = httpclient.New(httpclient.DefaultConfig())
	}
	return &Tester{client: client, maxConcurrency: maxConcurrency}
}

// SendConcurrent releases n requests at the same instant and waits until
// every one has returned or timed out. n is capped at the tester's
// concurrency; outcomes are indexed like the requests.
func (t *Tester) SendConcurrent(ctx context.Context, n int, build func(i int) *httpclient.Request) []httpclient.Outcome {
	if n > t.maxConcurrency {
		n = t.maxConcurrency
	}
	outcomes := make([]httpclient.Outcome, n)
	start := make(chan struct{})

	var g errgroup.Group
	g.SetLimit(t.maxConcurrency)
	for i := 0; i < n; i++ {
		req := build(i)
		g.Go(func() error {
			<-start
			outcomes[i] = t.client.Do(ctx, req)
			return nil
		})
	}

	close(start)
	_ = g.Wait()
	return outcomes
}
