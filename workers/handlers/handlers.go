// Package handlers serves the relayer's HTTP surface: the application-facing
// status poll, the trigger endpoints, and the operator listings.
package handlers

import (
	"context"

	"monallobridge/store"
)

// RelayRunner is the trigger surface exposed by the relayer.
type RelayRunner interface {
	TriggerWithRescans(selector string)
	RelayTransaction(ctx context.Context, txHash string) error
}

type Handler struct {
	Store  store.Store
	Runner RelayRunner
}

func New(st store.Store, runner RelayRunner) *Handler {
	return &Handler{Store: st, Runner: runner}
}
