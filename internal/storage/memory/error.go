package memory

import "errors"

var ErrEmptyDraftID = errors.New("draft has no id")
