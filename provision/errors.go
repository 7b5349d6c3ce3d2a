package provision

import "errors"

// ErrUnresolvedLocation means the engine could not map a spec to an
// executable location: the file is unknown to the loaded symbol table, or
// the line has no statement. Engine adapters wrap their native resolution
// errors with this sentinel so callers can check it with errors.Is.
var ErrUnresolvedLocation = errors.New("unresolved breakpoint location")

// ErrEngineUnavailable means no debugging session or target was active
// when provisioning was attempted.
var ErrEngineUnavailable = errors.New("debugging engine unavailable")
