package employee

import "errors"

var ErrDirectoryFailure = errors.New("employee directory unavailable")
