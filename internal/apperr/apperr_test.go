package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSample = New(KindIntegrity, "insufficient balance")

func TestSentinelMatchesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("transfer: %w", errSample)
	assert.ErrorIs(t, wrapped, errSample)
	assert.Equal(t, KindIntegrity, KindOf(wrapped))
	assert.Equal(t, "insufficient balance", Message(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("cart is empty"), http.StatusBadRequest},
		{Authorization("no discount capability"), http.StatusForbidden},
		{Integrity("insufficient balance"), http.StatusConflict},
		{Conflict("record already moved"), http.StatusConflict},
		{NotFound("product not found"), http.StatusNotFound},
		{Remote(errors.New("connection refused")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRemoteMessageIsVerbatim(t *testing.T) {
	err := Remote(errors.New("duplicate key value"))
	assert.Equal(t, "duplicate key value", Message(err))
	assert.Equal(t, "duplicate key value", err.Error())
}
