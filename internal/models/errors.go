package models

import (
	"errors"
)

var (
	ErrGeneral              = errors.New("an unexpected database error occurred during the run")
	ErrResourceNotFound     = errors.New("there is no")
	ErrDuplicateTransaction = errors.New("this transaction already exists in the canonical collection")
	ErrValidation           = errors.New("the stored data does not match the data written")
)
