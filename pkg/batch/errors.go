// Copyright 2025 Truthcrawl Project

package batch

import "errors"

// ErrBatchNotFound is returned when a batch directory does not exist
// under a chain or export directory.
var ErrBatchNotFound = errors.New("batch: not found")
