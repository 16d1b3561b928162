package analysis

import "errors"

// ErrUnknownCluster is returned when a target cluster id is outside the view.
var ErrUnknownCluster = errors.New("cluster id is not in the view")

// ErrUnknownNetwork is returned by NetParams for an unrecognized network name.
var ErrUnknownNetwork = errors.New("unknown network")
