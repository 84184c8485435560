package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"polymigrate/internal/polygon"
	pkgerrors "polymigrate/pkg/errors"
)

// polygonError maps a Polygon client failure onto an error code.
// A FAILED response keeps the remote comment as the message.
func polygonError(err error, step string) error {
	if err == nil {
		return nil
	}
	var coded *pkgerrors.Error
	if errors.As(err, &coded) {
		return err
	}

	var remote *polygon.RemoteAPIError
	if errors.As(err, &remote) {
		return pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.PolygonRemoteError).
			WithMessage(remote.Comment).
			WithDetail("method", remote.Method)
	}

	var transport *polygon.TransportError
	switch {
	case errors.Is(err, polygon.ErrStatementNotFound):
		return pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.StatementNotFound)
	case errors.Is(err, polygon.ErrInvalidPackage):
		return pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.PolygonPackageInvalid)
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.Timeout)
	case errors.As(err, &transport) && transport.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.TooManyRequests).
			WithDetail("method", transport.Method)
	case errors.As(err, &transport):
		e := pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.PolygonTransportError).
			WithDetail("method", transport.Method)
		if transport.StatusCode != 0 {
			e.WithDetail("status", transport.StatusCode)
		}
		return e
	default:
		return pkgerrors.Wrap(fmt.Errorf("%s: %w", step, err), pkgerrors.PolygonTransportError)
	}
}

func storageError(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrap(fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err), pkgerrors.StorageWriteFailed)
}

func databaseError(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrap(fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err), pkgerrors.DatabaseError)
}

// transactionError keeps the code of a step failure and tags commit failures.
func transactionError(err error) error {
	var coded *pkgerrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return pkgerrors.Wrap(fmt.Errorf("migration transaction failed: %w", err), pkgerrors.TransactionFailed)
}
