package watch

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
	"github.com/Aurracloud/agentic-x402/internal/core/registry"
	"github.com/Aurracloud/agentic-x402/internal/core/token"
	"github.com/Aurracloud/agentic-x402/internal/metrics"
)

// BalanceReader reads the watched token's balance of an account. Reads are
// gas-free contract calls; failures are transport errors.
type BalanceReader interface {
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
}

// Sampler reads current balances for every tracked router and classifies
// each against the stored value.
type Sampler struct {
	reader      BalanceReader
	decimals    int
	concurrency int
	log         *slog.Logger
}

// NewSampler creates a sampler. Balance queries fan out with the given
// concurrency limit.
func NewSampler(reader BalanceReader, decimals, concurrency int) *Sampler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Sampler{
		reader:      reader,
		decimals:    decimals,
		concurrency: concurrency,
		log:         slog.Default().With("component", "sampler"),
	}
}

// SampleAll samples every router in the registry and returns the detected
// balance increases in registry order. A failed read leaves that router's
// stored state untouched and never aborts the cycle for the others.
func (s *Sampler) SampleAll(ctx context.Context, reg *registry.Registry) []*domain.PaymentEvent {
	routers := reg.All()
	balances := make([]*big.Int, len(routers))

	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)
	for i, router := range routers {
		g.Go(func() error {
			balance, err := s.reader.BalanceOf(ctx, router.Address)
			if err != nil {
				s.log.Warn("balance check failed",
					"router", router.Label,
					"address", router.Address,
					"error", err,
				)
				metrics.BalanceCheckFailures.Inc()
				return nil
			}
			balances[i] = balance
			return nil
		})
	}
	_ = g.Wait()

	var events []*domain.PaymentEvent
	for i, router := range routers {
		balance := balances[i]
		if balance == nil {
			continue // read failed, stale state preserved
		}

		now := time.Now()
		prev := router.ApplySample(balance, now)
		if prev == nil {
			// Routers start from a zero baseline.
			prev = new(big.Int)
		}

		switch balance.Cmp(prev) {
		case 1:
			events = append(events, domain.NewPaymentEvent(router, prev, balance, now))
		case -1:
			s.log.Info("balance decreased",
				"router", router.Label,
				"previous", token.FormatUnits(prev, s.decimals),
				"current", token.FormatUnits(balance, s.decimals),
			)
		}
	}
	return events
}
