package teller

import "time"

// lockValidityWindow is the fixed lifetime of a lock token from issuance.
const lockValidityWindow = 5 * time.Minute

// balanceScale is the number of decimal digits carried by balances and
// amounts.
const balanceScale = 2

const (
	operationAcquire  = "lock_acquire"
	operationValidate = "lock_validate"
	operationRelease  = "lock_release"
	operationSubmit   = "submit"
	operationAdjust   = "adjust"
	operationClose    = "close_account"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
