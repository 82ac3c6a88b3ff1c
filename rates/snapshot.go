package rates

import "time"

// SnapshotKey is the versioned key the snapshot is persisted under.
// Bump the suffix on any shape-incompatible change to Snapshot
const SnapshotKey = "monitor_rates_v12"

// QuoteTypeP2P marks the peer-to-peer USDT quote
const QuoteTypeP2P = "p2p"

// Provenance labels carried in Quote.Source
const (
	SourceP2P              = "P2P Promedio"
	SourceOfficial         = "BCV Oficial"
	SourceOfficialFallback = "BCV Oficial (Respaldo)"
	SourceOfficialWeb      = "BCV Web (Respaldo)"
	SourceEuroTriangulated = "BCV x USD/EUR (Triangulado)"
	SourceDefault          = "Sin datos"
)

// Status is the outcome (or current phase) of a refresh cycle
type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusSuccess  Status = "success"
	StatusPartial  Status = "partial"
	StatusOffline  Status = "offline"
)

func (s Status) String() string {
	return string(s)
}

// Quote is a single reconciled rate, in VES per one unit of foreign currency
type Quote struct {
	Price  float64 `json:"price"`
	Source string  `json:"source"`
	Type   string  `json:"type,omitempty"`
	Change float64 `json:"change"`
}

// Snapshot is the canonical rate state. It is treated as an immutable value:
// a refresh produces a new Snapshot that fully replaces the previous one
//
//nolint:tagliatelle // persisted shape
type Snapshot struct {
	USDT       Quote     `json:"usdt"`
	BCV        Quote     `json:"bcv"`
	Euro       Quote     `json:"euro"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// DefaultSnapshot seeds the state before any fetch completes.
// Zero prices mean "unknown"
func DefaultSnapshot() Snapshot {
	return Snapshot{
		USDT: Quote{
			Source: SourceDefault,
			Type:   QuoteTypeP2P,
		},
		BCV: Quote{
			Source: SourceDefault,
		},
		Euro: Quote{
			Source: SourceDefault,
		},
	}
}

// Known returns true if at least one price has been resolved
func (s Snapshot) Known() bool {
	return s.USDT.Price > 0 || s.BCV.Price > 0 || s.Euro.Price > 0
}
