package sessionrepo

import "errors"

var errNilSession = errors.New("persisted session cannot be nil")
