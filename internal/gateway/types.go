package gateway

import (
	"bytes"
	"encoding/json"
)

// CodeSuccess is the only code accepted as a successful request or verification.
const CodeSuccess = 100

type Metadata struct {
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

type PaymentRequest struct {
	Amount   int64
	Metadata Metadata
}

type VerifyRequest struct {
	Amount    int64
	Authority string
}

type Verification struct {
	Code    int
	RefID   int64
	CardPan string
}

type requestPayload struct {
	MerchantID  string   `json:"merchant_id"`
	Amount      int64    `json:"amount"`
	CallbackURL string   `json:"callback_url"`
	Description string   `json:"description"`
	Metadata    Metadata `json:"metadata"`
}

type verifyPayload struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// envelope keeps data and errors raw: the gateway sends an empty array for whichever is absent.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type responseData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	RefID     int64  `json:"ref_id"`
	CardPan   string `json:"card_pan"`
}

type responseErrors struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func decodeObject(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
