package service

import (
	"errors"
	"log"

	"cybermarket/internal/repository"
	"cybermarket/pkg/apierror"
)

// Messages shared by more than one service.
const (
	msgNotLoggedIn     = "You have not logged in or your login has timed out"
	msgAlreadyLoggedIn = "You are already logged in, please do not log in again"
	msgPasswordWrong   = "The password of the user is incorrect"
)

// internal logs an unexpected store failure and hides it behind a 500.
func internal(op string, err error) error {
	log.Printf("[Service] %s failed: %v", op, err)
	return apierror.InternalError("")
}

// mapStoreError converts repository sentinels into protocol errors. Any
// other error is treated as a store failure.
func mapStoreError(op string, err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound) && notFound != "":
		return apierror.NotFound(notFound)
	case errors.Is(err, repository.ErrConflict) && conflict != "":
		return apierror.Conflict(conflict)
	}
	return internal(op, err)
}
