package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("appointments.find", "No appointment found.")
	wrapped := fmt.Errorf("editor: lookup: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindTransport))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindNotFound))
}

func TestTransportHidesCause(t *testing.T) {
	err := Transport("hospital.confirm", http.StatusInternalServerError, errors.New(`{"trace":"secret"}`))

	assert.Contains(t, err.Error(), "secret")
	assert.NotContains(t, ClientMessage(err, ""), "secret")
	assert.ErrorContains(t, errors.Unwrap(err), "trace")
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(Constraint("op", "gone")))
	assert.True(t, IsConflict(fmt.Errorf("wrap: %w", FromStatus("op", http.StatusConflict, errors.New("taken")))))
	assert.False(t, IsConflict(Transport("op", http.StatusBadGateway, errors.New("down"))))
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusConflict, KindConstraint},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusInternalServerError, KindTransport},
		{http.StatusBadGateway, KindTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus("hospital.op", tt.status, errors.New("raw body"))
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.ErrorContains(t, errors.Unwrap(err), "raw body")
			assert.NotContains(t, ClientMessage(err, "fallback"), "raw body")
		})
	}
}

func TestClientMessageFallback(t *testing.T) {
	assert.Equal(t, "fallback", ClientMessage(errors.New("x"), "fallback"))
	assert.Equal(t, "Invalid name.", ClientMessage(Validation("op", "Invalid name."), "fallback"))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, StatusCode(fmt.Errorf("wrap: %w", Transport("op", http.StatusBadGateway, errors.New("down")))))
	assert.Equal(t, http.StatusNotFound, StatusCode(NotFound("op", "missing")))
	assert.Zero(t, StatusCode(errors.New("plain")))
}
