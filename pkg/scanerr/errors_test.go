package scanerr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError_Is(t *testing.T) {
	err := Configf("target_url", "must not be empty")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "invalid configuration: target_url: must not be empty", err.Error())
}

func TestAuthenticationError_UnwrapsCause(t *testing.T) {
	cause := &ExternalServiceError{Endpoint: "users/action/newUser", StatusCode: 500, Err: errors.New("boom")}
	err := &AuthenticationError{Method: "FORM_BASED", Op: "create user", Err: cause}

	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrExternalService)

	var ext *ExternalServiceError
	assert.True(t, errors.As(err, &ext))
	assert.Equal(t, 500, ext.StatusCode)
}

func TestScannerError_PreservesChain(t *testing.T) {
	timeout := &TimeoutError{Phase: "active", Budget: time.Second, Elapsed: time.Second, Last: 42}
	err := &ScannerError{Phase: "active", Err: fmt.Errorf("wait: %w", timeout)}

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "scan failed during active")
	assert.Contains(t, err.Error(), "last value 42")
}

func TestKind(t *testing.T) {
	assert.Equal(t, "none", Kind(nil))
	assert.Equal(t, "configuration", Kind(Configf("x", "y")))
	assert.Equal(t, "authentication", Kind(&AuthenticationError{Err: errors.New("x")}))
	assert.Equal(t, "timeout", Kind(&ScannerError{Err: &TimeoutError{}}))
	assert.Equal(t, "external_service", Kind(&ExternalServiceError{Err: errors.New("x")}))
	assert.Equal(t, "unknown", Kind(errors.New("other")))
}
