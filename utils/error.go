package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorRunInProgress is returned when the run lease is already held.
var ErrorRunInProgress = errors.New("a sync run is already in progress")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
