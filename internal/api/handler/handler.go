package handler

import (
	"dapbuddy/backend/internal/channel"
	"dapbuddy/backend/internal/dispute"
	"dapbuddy/backend/internal/exchange"
	"dapbuddy/backend/internal/storage"
)

// Handler wires the HTTP surface to the hub, the state machine and the
// dispute path.
type Handler struct {
	Hub      *channel.ManagerService
	Storage  storage.Storage
	Machine  *exchange.Machine
	Disputes *dispute.Service
	Tracker  *channel.ReadReceiptTracker
}

func NewHandler(hub *channel.ManagerService, s storage.Storage, m *exchange.Machine, d *dispute.Service) *Handler {
	return &Handler{
		Hub:      hub,
		Storage:  s,
		Machine:  m,
		Disputes: d,
		Tracker:  channel.NewReadReceiptTracker(s),
	}
}
