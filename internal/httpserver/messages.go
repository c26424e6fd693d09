package httpserver

import "github.com/TellerWorksLab/teller/pkg/teller"

// Human-readable texts live here, away from the status discriminants the
// domain returns.

func acquireMessage(status teller.AcquireStatus) string {
	switch status {
	case teller.AcquireStatusAccountNotFound:
		return "Account does not exist."
	case teller.AcquireStatusAccountClosed:
		return "Account is closed."
	default:
		return "Success"
	}
}

func releaseMessage(status teller.ReleaseStatus) string {
	switch status {
	case teller.ReleaseStatusAccountNotFound:
		return "Account does not exist."
	case teller.ReleaseStatusTokenNotFound:
		return "Lock token does not exist."
	case teller.ReleaseStatusTokenInvalid:
		return "Invalid lock token."
	case teller.ReleaseStatusFailed:
		return "Failed"
	default:
		return "Success"
	}
}

func adjustMessage(status teller.AdjustStatus) string {
	switch status {
	case teller.AdjustStatusAccountNotFound:
		return "Account does not exist."
	case teller.AdjustStatusAccountClosed:
		return "Account is closed."
	case teller.AdjustStatusInsufficientFunds:
		return "Insufficient funds"
	case teller.AdjustStatusFailed:
		return "Failed"
	case teller.AdjustStatusTokenNotFound:
		return "Lock token does not exist."
	case teller.AdjustStatusTokenInvalid:
		return "Invalid lock token."
	case teller.AdjustStatusTokenReleased:
		return "Lock has been released."
	case teller.AdjustStatusTokenExpired:
		return "Lock token has expired."
	default:
		return "Success"
	}
}

func closeMessage(status teller.CloseStatus) string {
	switch status {
	case teller.CloseStatusAccountNotFound:
		return "Account does not exist."
	case teller.CloseStatusAccountClosed:
		return "Account is closed."
	case teller.CloseStatusFailed:
		return "Failed"
	case teller.CloseStatusTokenNotFound:
		return "Lock token does not exist."
	case teller.CloseStatusTokenInvalid:
		return "Invalid lock token."
	case teller.CloseStatusTokenReleased:
		return "Lock has been released."
	case teller.CloseStatusTokenExpired:
		return "Lock token has expired."
	default:
		return "Account closed."
	}
}

const (
	messageAmountMustExceedZero = "Balance amount must be greater than $0.00"
	messageAlreadyExists        = "Idempotency key already exists."
	messageBadRequest           = "Bad Request"
	messageAccountMustHaveName  = "Account must have a name."
	messageInvalidUserHeader    = "UserId in header is invalid."
	messageInvalidAccountPath   = "Account in path is invalid."
	messageInvalidLockToken     = "Invalid lock token."
	messageMissingUserField     = "Body is missing required field."
)
