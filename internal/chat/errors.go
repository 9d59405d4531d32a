package chat

import "errors"

// ErrSenderNotFound is returned by Broadcast when the sender is no longer registered.
var ErrSenderNotFound = errors.New("sender not registered")
