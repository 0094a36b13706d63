package services

import "errors"

// Series service errors
var (
	// ErrNoDataset is returned by queries issued before any result was loaded
	ErrNoDataset = errors.New("no pipeline result loaded")
)
