package live

import "fmt"

// ErrorKind categorizes session failures.
type ErrorKind string

const (
	// ErrDevice means the microphone or output device could not be acquired.
	ErrDevice ErrorKind = "device_error"
	// ErrConnect means the remote session could not be established.
	ErrConnect ErrorKind = "connect_error"
	// ErrSend means a transmit on an open session failed. Fatal for the
	// session: the remote channel has no resumable stream semantics.
	ErrSend ErrorKind = "send_error"
	// ErrRemote means the remote side reported an error or dropped the session.
	ErrRemote ErrorKind = "remote_error"
)

// Error is a session failure surfaced to the presentation layer.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewDeviceError creates a device acquisition error.
func NewDeviceError(underlying error) *Error {
	return &Error{Kind: ErrDevice, Message: underlying.Error()}
}

// NewConnectError creates a remote connect error.
func NewConnectError(underlying error) *Error {
	return &Error{Kind: ErrConnect, Message: underlying.Error()}
}

// NewSendError creates a transport send error.
func NewSendError(underlying error) *Error {
	return &Error{Kind: ErrSend, Message: underlying.Error()}
}

// NewRemoteError creates a remote-reported error.
func NewRemoteError(underlying error) *Error {
	return &Error{Kind: ErrRemote, Message: underlying.Error()}
}
