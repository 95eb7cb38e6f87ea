package services

import "errors"

// ErrSwapUnsupported is returned by OpenLedger when the backend has no
// notion of ledger files.
var ErrSwapUnsupported = errors.New("ledger swap not supported by this backend")
