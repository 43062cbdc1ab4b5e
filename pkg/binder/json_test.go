package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/binder"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func jsonRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("binds body", func(t *testing.T) {
		t.Parallel()
		var got loginBody
		err := binder.JSON()(jsonRequest(`{"email":"a@b.co","password":"secret1"}`, "application/json; charset=utf-8"), &got)
		require.NoError(t, err)
		assert.Equal(t, loginBody{Email: "a@b.co", Password: "secret1"}, got)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        error
	}{
		{"missing content type", `{"email":"x"}`, "", binder.ErrMissingContentType},
		{"wrong media type", `{"email":"x"}`, "text/plain", binder.ErrUnsupportedMediaType},
		{"malformed", `{"email":`, "application/json", binder.ErrInvalidJSON},
		{"unknown field", `{"mail":"x"}`, "application/json", binder.ErrInvalidJSON},
		{"trailing data", `{"email":"x"}{}`, "application/json", binder.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got loginBody
			err := binder.JSON()(jsonRequest(tt.body, tt.contentType), &got)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("not applicable without body", func(t *testing.T) {
		t.Parallel()
		var got loginBody
		err := binder.JSON()(httptest.NewRequest(http.MethodGet, "/auth/session", nil), &got)
		assert.ErrorIs(t, err, binder.ErrBinderNotApplicable)
	})
}
