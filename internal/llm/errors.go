package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors for provider failures callers may want to tell apart.
var (
	// ErrTimeout means the provider did not answer within the configured timeout.
	ErrTimeout = errors.New("llm request timed out")
	// ErrUnavailable means the provider is misconfigured, rejected our credentials, or is down.
	ErrUnavailable = errors.New("llm provider unavailable")
	// ErrBlocked means the provider refused the prompt or withheld the reply.
	ErrBlocked = errors.New("llm response blocked")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("llm returned no text")
)

// Classify wraps err with ErrTimeout or ErrUnavailable when the failure is one
// of those kinds. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case apiErr.Code == http.StatusUnauthorized,
			apiErr.Code == http.StatusForbidden,
			apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case codes.Unauthenticated, codes.PermissionDenied, codes.Unavailable:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	return err
}
