package watch

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Aurracloud/agentic-x402/internal/core/registry"
	"github.com/Aurracloud/agentic-x402/internal/metrics"
)

// fakeReader serves scripted balances per lower-cased address. A nil script
// entry produces an error.
type fakeReader struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	errs     map[string]error
	calls    map[string]int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		balances: make(map[string]*big.Int),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeReader) set(address string, balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(address)
	f.balances[key] = big.NewInt(balance)
	delete(f.errs, key)
}

func (f *fakeReader) fail(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[strings.ToLower(address)] = err
}

func (f *fakeReader) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(account)
	f.calls[key]++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	balance, ok := f.balances[key]
	if !ok {
		return nil, errors.New("unknown account")
	}
	return new(big.Int).Set(balance), nil
}

const (
	addrAlpha = "0xAAaa000000000000000000000000000000000001"
	addrBeta  = "0xBBbb000000000000000000000000000000000002"
	addrGamma = "0xCCcc000000000000000000000000000000000003"
)

func TestSampleAll_Classification(t *testing.T) {
	reg := registry.New()
	reg.Upsert(addrAlpha, "Alpha")
	reg.Upsert(addrBeta, "Beta")

	reader := newFakeReader()
	reader.set(addrAlpha, 100)
	reader.set(addrBeta, 100)
	s := NewSampler(reader, 6, 2)

	// First pass establishes both balances from the zero baseline.
	events := s.SampleAll(context.Background(), reg)
	if len(events) != 2 {
		t.Fatalf("Expected 2 increases from zero baseline, got %d", len(events))
	}

	// Increase, decrease and unchanged.
	reader.set(addrAlpha, 150)
	reader.set(addrBeta, 40)
	events = s.SampleAll(context.Background(), reg)
	if len(events) != 1 {
		t.Fatalf("Expected exactly 1 increase, got %d", len(events))
	}
	if events[0].Label != "Alpha" {
		t.Errorf("Expected event for Alpha, got %s", events[0].Label)
	}
	if events[0].Increase.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("Expected increase 50, got %s", events[0].Increase)
	}

	// Unchanged yields nothing.
	events = s.SampleAll(context.Background(), reg)
	if len(events) != 0 {
		t.Errorf("Expected no events for unchanged balances, got %d", len(events))
	}
}

func TestSampleAll_PartialFailureIsolation(t *testing.T) {
	reg := registry.New()
	reg.Upsert(addrAlpha, "Alpha")
	reg.Upsert(addrBeta, "Beta")
	reg.Upsert(addrGamma, "Gamma")

	reader := newFakeReader()
	reader.set(addrAlpha, 100)
	reader.set(addrBeta, 100)
	reader.set(addrGamma, 100)
	s := NewSampler(reader, 6, 2)
	s.SampleAll(context.Background(), reg)

	// Beta's read fails; Alpha and Gamma still classify.
	reader.set(addrAlpha, 200)
	reader.fail(addrBeta, errors.New("rpc timeout"))
	reader.set(addrGamma, 300)

	failuresBefore := testutil.ToFloat64(metrics.BalanceCheckFailures)
	events := s.SampleAll(context.Background(), reg)
	if len(events) != 2 {
		t.Fatalf("Expected 2 increases despite one failed read, got %d", len(events))
	}
	if got := testutil.ToFloat64(metrics.BalanceCheckFailures) - failuresBefore; got != 1 {
		t.Errorf("Expected 1 balance check failure counted, got %v", got)
	}
	if events[0].Label != "Alpha" || events[1].Label != "Gamma" {
		t.Errorf("Expected registry-order events Alpha,Gamma got %s,%s",
			events[0].Label, events[1].Label)
	}

	// The failed router keeps its stored balance.
	beta, _ := reg.Get(addrBeta)
	balance, _ := beta.Snapshot()
	if balance.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("Failed read corrupted stored balance: got %s", balance)
	}

	// A recovered read compares against the preserved value.
	reader.set(addrBeta, 150)
	events = s.SampleAll(context.Background(), reg)
	if len(events) != 1 || events[0].Increase.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("Expected Beta increase of 50 after recovery, got %+v", events)
	}
}

func TestSampleAll_EmptyRegistry(t *testing.T) {
	s := NewSampler(newFakeReader(), 6, 2)
	if events := s.SampleAll(context.Background(), registry.New()); len(events) != 0 {
		t.Errorf("Expected no events for empty registry, got %d", len(events))
	}
}
