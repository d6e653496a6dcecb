package payment

import "errors"

var errTransientUnavailable = errors.New("payment collaborator temporarily unavailable")
