package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

type BridgeStateResponse struct {
	ProcessedDeposits int            `json:"processedDeposits"`
	PendingMirrors    int            `json:"pendingMirrors"`
	Watermark         core.Watermark `json:"watermark"`
}

type DepositResponse struct {
	DepositTxHash string             `json:"depositTxHash"`
	Status        string             `json:"status"`
	MirrorTxHash  string             `json:"mirrorTxHash,omitempty"`
	RetryCount    uint32             `json:"retryCount,omitempty"`
	Deposit       *core.DepositEvent `json:"deposit,omitempty"`
}

// BridgeStateControllerImpl exposes the bridge's public state read-only.
type BridgeStateControllerImpl struct {
	relayer core.Relayer
	logger  hclog.Logger
}

var _ APIController = (*BridgeStateControllerImpl)(nil)

func NewBridgeStateController(relayer core.Relayer, logger hclog.Logger) *BridgeStateControllerImpl {
	return &BridgeStateControllerImpl{
		relayer: relayer,
		logger:  logger,
	}
}

func (c *BridgeStateControllerImpl) GetPathPrefix() string {
	return "bridge"
}

func (c *BridgeStateControllerImpl) GetEndpoints() []APIEndpoint {
	return []APIEndpoint{
		{Path: "state", Method: http.MethodGet, Handler: c.getState},
		{Path: "pending", Method: http.MethodGet, Handler: c.getPending},
		{Path: "deposits/{txHash}", Method: http.MethodGet, Handler: c.getDeposit},
	}
}

func (c *BridgeStateControllerImpl) getState(w http.ResponseWriter, r *http.Request) {
	state, err := c.relayer.GetBridgeState()
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err, c.logger)

		return
	}

	writeResponse(w, r, http.StatusOK, BridgeStateResponse{
		ProcessedDeposits: len(state.ProcessedDeposits),
		PendingMirrors:    len(state.PendingMirrors),
		Watermark:         state.Watermark,
	}, c.logger)
}

func (c *BridgeStateControllerImpl) getPending(w http.ResponseWriter, r *http.Request) {
	pending, err := c.relayer.GetPendingDeposits()
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err, c.logger)

		return
	}

	result := make([]DepositResponse, 0, len(pending))
	for _, pm := range pending {
		pm := pm
		result = append(result, DepositResponse{
			DepositTxHash: pm.DepositTxHash,
			Status:        core.MirrorStatusPending.String(),
			RetryCount:    pm.RetryCount,
			Deposit:       &pm.Deposit,
		})
	}

	writeResponse(w, r, http.StatusOK, result, c.logger)
}

func (c *BridgeStateControllerImpl) getDeposit(w http.ResponseWriter, r *http.Request) {
	txHash := mux.Vars(r)["txHash"]
	if txHash == "" {
		writeErrorResponse(w, r, http.StatusBadRequest, errors.New("txHash not specified"), c.logger)

		return
	}

	state, err := c.relayer.GetBridgeState()
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err, c.logger)

		return
	}

	if pm, exists := state.PendingMirrors[txHash]; exists {
		writeResponse(w, r, http.StatusOK, DepositResponse{
			DepositTxHash: pm.DepositTxHash,
			Status:        core.MirrorStatusPending.String(),
			RetryCount:    pm.RetryCount,
			Deposit:       &pm.Deposit,
		}, c.logger)

		return
	}

	if pd, exists := state.ProcessedDeposits[txHash]; exists {
		writeResponse(w, r, http.StatusOK, DepositResponse{
			DepositTxHash: pd.DepositTxHash,
			Status:        pd.Status.String(),
			MirrorTxHash:  pd.MirrorTxHash,
		}, c.logger)

		return
	}

	writeErrorResponse(w, r, http.StatusNotFound, fmt.Errorf("deposit not found: %s", txHash), c.logger)
}
