package models

// PairingState tracks where the relay is in its QR pairing lifecycle.
type PairingState string

const (
	PairingUnknown  PairingState = "unknown"
	PairingBooting  PairingState = "booting"
	PairingAwaiting PairingState = "awaiting_pairing"
	PairingReady    PairingState = "ready"
)

// RelayStatus is the snapshot exposed by GET /api/v1/relay/status.
type RelayStatus struct {
	Running      bool         `json:"running"`
	PairingState PairingState `json:"pairing_state"`
	HasQR        bool         `json:"has_qr"`
}

// DispatchResult tallies one bulk send.
type DispatchResult struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// User is the API operator account, loaded from configuration.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
