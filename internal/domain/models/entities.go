package models

import (
	"sort"
	"time"
)

// Direction is the predicted or realized price move over a horizon.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// SentimentSource identifies where a scored document came from.
type SentimentSource string

const (
	SourceNews   SentimentSource = "news"
	SourceSocial SentimentSource = "social"
)

// GlobalScope is the instrument-agnostic performance bucket key.
const GlobalScope = "global"

// Instrument is a tracked ticker. Instruments are created via configuration
// and never deleted, only deactivated.
type Instrument struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceObservation is one daily OHLCV bar. Immutable once written,
// ordered by date per instrument.
type PriceObservation struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SentimentRecord is one scored document tied to an instrument.
// Score is in [-1, 1]; Label is derived from the score.
type SentimentRecord struct {
	Symbol     string          `json:"symbol"`
	Timestamp  time.Time       `json:"timestamp"`
	Source     SentimentSource `json:"source"`
	Score      float64         `json:"score"`
	Label      string          `json:"label"`
	DocumentID string          `json:"document_id"`
	Rationale  string          `json:"rationale,omitempty"`
}

// SentimentLabel maps a score in [-1,1] to a coarse label.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.2:
		return "positive"
	case score < -0.2:
		return "negative"
	default:
		return "neutral"
	}
}

// Correlation is the blended co-movement coefficient for one unordered
// instrument pair as of a compute date. Rows are append-only; each cycle
// writes a fresh snapshot and prior rows are kept for audit.
type Correlation struct {
	SymbolA     string    `json:"symbol_a"`
	SymbolB     string    `json:"symbol_b"`
	ComputedAt  time.Time `json:"computed_at"`
	Coefficient float64   `json:"coefficient"`
	SampleSize  int       `json:"sample_size"`
	Significant bool      `json:"significant"`
}

// Pair returns the canonical (A < B) ordering of the correlation pair.
func (c Correlation) Pair() (string, string) {
	if c.SymbolA < c.SymbolB {
		return c.SymbolA, c.SymbolB
	}
	return c.SymbolB, c.SymbolA
}

// Other returns the peer symbol for the given one, or "" if symbol is not
// part of the pair.
func (c Correlation) Other(symbol string) string {
	switch symbol {
	case c.SymbolA:
		return c.SymbolB
	case c.SymbolB:
		return c.SymbolA
	}
	return ""
}

// Candidate is a strategy-local prediction proposal before selection.
type Candidate struct {
	Strategy   string    `json:"strategy"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
}

// Prediction is the single published prediction for an instrument and cycle.
// At most one exists per (symbol, cycle date); the selector enforces that.
type Prediction struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	CycleDate   time.Time `json:"cycle_date"`
	TargetDate  time.Time `json:"target_date"`
	HorizonDays int       `json:"horizon_days"`
	Strategy    string    `json:"strategy"`
	Direction   Direction `json:"direction"`
	Confidence  float64   `json:"confidence"`
	Rationale   string    `json:"rationale"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result records the realized outcome of one prediction. Created exactly
// once per prediction, at or after cycle date + horizon.
type Result struct {
	PredictionID   string    `json:"prediction_id"`
	Symbol         string    `json:"symbol"`
	Strategy       string    `json:"strategy"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
	RealizedDir    Direction `json:"realized_direction"`
	RealizedReturn float64   `json:"realized_return"`
	Correct        bool      `json:"correct"`
}

// StrategyPerformance is the rolling hit-rate bucket for one strategy and
// scope (an instrument symbol or GlobalScope). Mutated only by the
// evaluation pass; read by the selector.
type StrategyPerformance struct {
	Strategy    string    `json:"strategy"`
	Scope       string    `json:"scope"`
	HitRate     float64   `json:"hit_rate"`
	SampleCount int       `json:"sample_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SignalWindow bundles the time-windowed series a strategy reads for one
// instrument. Prices are ordered ascending by date, sentiment ascending by
// timestamp.
type SignalWindow struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Prices    []PriceObservation
	Sentiment []SentimentRecord
}

// NewsSince returns news-source records observed at or after cutoff.
func (w SignalWindow) NewsSince(cutoff time.Time) []SentimentRecord {
	out := make([]SentimentRecord, 0, 4)
	for _, r := range w.Sentiment {
		if r.Source == SourceNews && !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// CorrelationSnapshot is the set of correlations computed for the current
// cycle, indexed by canonical pair. Absence of a pair means "unknown",
// never "zero correlation".
type CorrelationSnapshot struct {
	ComputedAt time.Time
	pairs      map[[2]string]Correlation
}

// NewCorrelationSnapshot builds a snapshot from computed rows.
func NewCorrelationSnapshot(computedAt time.Time, rows []Correlation) *CorrelationSnapshot {
	s := &CorrelationSnapshot{ComputedAt: computedAt, pairs: make(map[[2]string]Correlation, len(rows))}
	for _, c := range rows {
		a, b := c.Pair()
		s.pairs[[2]string{a, b}] = c
	}
	return s
}

// Lookup returns the correlation for an unordered pair, if present.
func (s *CorrelationSnapshot) Lookup(a, b string) (Correlation, bool) {
	if s == nil {
		return Correlation{}, false
	}
	if b < a {
		a, b = b, a
	}
	c, ok := s.pairs[[2]string{a, b}]
	return c, ok
}

// Significant returns every significant correlation involving symbol, in
// canonical pair order so callers see a stable sequence.
func (s *CorrelationSnapshot) Significant(symbol string) []Correlation {
	if s == nil {
		return nil
	}
	out := make([]Correlation, 0, 2)
	for _, c := range s.pairs {
		if c.Significant && c.Other(symbol) != "" {
			out = append(out, c)
		}
	}
	sortByPair(out)
	return out
}

// All returns every correlation row in the snapshot, in canonical pair order.
func (s *CorrelationSnapshot) All() []Correlation {
	if s == nil {
		return nil
	}
	out := make([]Correlation, 0, len(s.pairs))
	for _, c := range s.pairs {
		out = append(out, c)
	}
	sortByPair(out)
	return out
}

func sortByPair(rows []Correlation) {
	sort.Slice(rows, func(i, j int) bool {
		ai, bi := rows[i].Pair()
		aj, bj := rows[j].Pair()
		if ai != aj {
			return ai < aj
		}
		return bi < bj
	})
}
