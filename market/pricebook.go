package market

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest bid/ask for one pair. Priced is false until the first
// tick for the pair (or its inverse) has been applied.
type Quote struct {
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Time   time.Time
	Priced bool
}

func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(two)
}

func (q Quote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// PriceBook holds the latest quote for every configured pair and its
// inverse. One ingestion goroutine writes it; the coordination loop reads it.
// A pair and its inverse are replaced together under the lock, so a reader
// never sees a bid without its matching ask.
type PriceBook struct {
	mu     sync.RWMutex
	pairs  []string
	quotes map[string]Quote
}

// NewPriceBook creates an entry, initially unpriced, for each pair and its
// inverse.
func NewPriceBook(pairs ...string) (*PriceBook, error) {
	pb := &PriceBook{
		quotes: make(map[string]Quote, len(pairs)*2),
	}
	for _, p := range pairs {
		inv, err := InversePair(p)
		if err != nil {
			return nil, err
		}
		if _, dup := pb.quotes[p]; !dup {
			pb.pairs = append(pb.pairs, p)
		}
		pb.quotes[p] = Quote{}
		pb.quotes[inv] = Quote{}
	}
	return pb, nil
}

// Pairs returns the configured pairs, without the synthetic inverses.
func (pb *PriceBook) Pairs() []string {
	out := make([]string, len(pb.pairs))
	copy(out, pb.pairs)
	return out
}

// Tracked reports whether pair (configured or inverse) has an entry.
func (pb *PriceBook) Tracked(pair string) bool {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	_, ok := pb.quotes[pair]
	return ok
}

// Update quantizes bid and ask to PricePlaces, stores them for pair and
// stores the inverted quote for the inverse pair. Nothing is applied when the
// pair is unknown or either side is not positive.
func (pb *PriceBook) Update(pair string, bid, ask decimal.Decimal, t time.Time) (Quote, error) {
	inv, err := InversePair(pair)
	if err != nil {
		return Quote{}, err
	}

	bid = RoundHalfDown(bid, PricePlaces)
	ask = RoundHalfDown(ask, PricePlaces)
	if !bid.IsPositive() || !ask.IsPositive() {
		return Quote{}, fmt.Errorf("%w: %s bid=%s ask=%s", ErrInvalidPrice, pair, bid, ask)
	}
	invBid, invAsk := Invert(bid, ask)

	q := Quote{Bid: bid, Ask: ask, Time: t, Priced: true}

	pb.mu.Lock()
	defer pb.mu.Unlock()

	if _, ok := pb.quotes[pair]; !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	pb.quotes[pair] = q
	pb.quotes[inv] = Quote{Bid: invBid, Ask: invAsk, Time: t, Priced: true}
	return q, nil
}

// Quote returns the latest quote for pair. An unpriced quote is not an error
// here; callers that need prices check Priced.
func (pb *PriceBook) Quote(pair string) (Quote, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	q, ok := pb.quotes[pair]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	return q, nil
}

// IsReady reports whether every named pair has both sides priced. With no
// arguments every entry in the book, inverses included, must be priced.
func (pb *PriceBook) IsReady(pairs ...string) bool {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	if len(pairs) == 0 {
		for _, q := range pb.quotes {
			if !q.Priced {
				return false
			}
		}
		return true
	}
	for _, p := range pairs {
		q, ok := pb.quotes[p]
		if !ok || !q.Priced {
			return false
		}
	}
	return true
}

// Snapshot copies every entry, sorted by pair, for display.
func (pb *PriceBook) Snapshot() []PairQuote {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	out := make([]PairQuote, 0, len(pb.quotes))
	for p, q := range pb.quotes {
		out = append(out, PairQuote{Pair: p, Quote: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

type PairQuote struct {
	Pair string
	Quote
}
