package models

type CheckoutState string

const (
	CheckoutNoPending CheckoutState = "NO_PENDING"
	CheckoutPending   CheckoutState = "PENDING"
	CheckoutVerified  CheckoutState = "VERIFIED"
	CheckoutCancelled CheckoutState = "CANCELLED"
	CheckoutRejected  CheckoutState = "REJECTED"
	CheckoutFailed    CheckoutState = "FAILED"
)

func (s CheckoutState) IsTerminal() bool {
	switch s {
	case CheckoutVerified, CheckoutCancelled, CheckoutRejected, CheckoutFailed:
		return true
	}
	return false
}

func (s CheckoutState) String() string {
	return string(s)
}

// Callback statuses sent by the gateway on redirect.
const (
	CallbackStatusOK  = "OK"
	CallbackStatusNOK = "NOK"
)
