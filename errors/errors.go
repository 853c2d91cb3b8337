package errors

import "fmt"

// Connection-fatal errors. Both close the websocket with a policy-violation
// code before any frame exchange.
var (
	ErrAuthRequired = fmt.Errorf("authentication required")
	ErrInvalidToken = fmt.Errorf("invalid token")
)

// Recoverable frame-level errors. The connection stays open and the sender
// receives an error frame.
var (
	ErrInvalidMessageFormat = fmt.Errorf("invalid message format")
	ErrUnknownFrameType     = fmt.Errorf("unknown message type")
	ErrInvalidMessageData   = fmt.Errorf("invalid message data")
	ErrUnknownReceiver      = fmt.Errorf("unknown receiver")
	ErrRateLimited          = fmt.Errorf("rate limit exceeded")
	ErrDeliveryFailed       = fmt.Errorf("message delivery failed")
)

// Account lifecycle errors surfaced by the HTTP layer.
var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUserNotFound       = fmt.Errorf("user not found")
)
