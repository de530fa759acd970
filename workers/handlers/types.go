package handlers

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type APIBridgeStatusResponse struct {
	Status            string `json:"status"`
	DestinationTxHash string `json:"destinationTxHash,omitempty"`
	Type              string `json:"type,omitempty"`
}

type TriggerRelayRequest struct {
	SourceChainID int `json:"sourceChainId"`
}

type RelayTransactionRequest struct {
	TxHash string `json:"txHash"`
}
