package apperrors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidCSV   = errors.New("invalid csv content")
	ErrEmptyDataset = errors.New("dataset has no content")
)
