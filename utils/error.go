package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorDuplicateRule = errors.New("duplicate reminder rules for days_overdue")
