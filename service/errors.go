package service

import (
	"errors"
	"fmt"

	"github.com/nkazmin/liveboard/store"
)

// Errors returned from service operations. The REST and websocket layers map
// these onto status codes and error events.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrExpired         = errors.New("expired")
	ErrConflict        = errors.New("conflict")
)

func mapStoreErr(err error, what string) error {
	if errors.Is(err, store.ErrItemNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
