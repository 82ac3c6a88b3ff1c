package server

import (
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/types"
)

type SnapshotResponse struct {
	Snapshot rates.Snapshot `json:"snapshot"`
	Status   rates.Status   `json:"status"`
	Offline  bool           `json:"offline"`
	Gap      float64        `json:"gap"`
}

type RefreshResponse struct {
	Snapshot rates.Snapshot `json:"snapshot"`
	Status   rates.Status   `json:"status"`
}

type SourcesResponse struct {
	Results []types.Source `json:"results"`
}

type CurrenciesResponse struct {
	Results []types.Currency `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
