package models

const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotLoggedIn       = "NOT_LOGGED_IN"
	CodeVotingClosed      = "VOTING_CLOSED"
	CodeQuotaExhausted    = "QUOTA_EXHAUSTED"
	CodeAlreadyVoted      = "ALREADY_VOTED"
	CodeNotInPair         = "NOT_IN_PAIR"
	CodeCredentialMissing = "CREDENTIAL_MISSING"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeInvalidWindow     = "INVALID_WINDOW"
	CodeRemoteFailed      = "REMOTE_OPERATION_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}
