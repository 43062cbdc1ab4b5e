package authform_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/authform"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/session"
)

type fakeActions struct {
	mu      sync.Mutex
	calls   []string
	result  session.Result
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeActions) record(call string) session.Result {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block != nil {
		close(entered)
		<-block
	}
	return f.result
}

func (f *fakeActions) SignInWithEmail(_ context.Context, email, password string) session.Result {
	return f.record("signin:" + email + ":" + password)
}

func (f *fakeActions) SignUpWithEmail(_ context.Context, email, password, name string) session.Result {
	return f.record("signup:" + email + ":" + password + ":" + name)
}

func (f *fakeActions) SignInWithOAuth(_ context.Context, p identity.Provider, _ identity.Callback) session.Result {
	return f.record("oauth:" + p.String())
}

func failure(code identity.Code) session.Result {
	return session.Result{Code: string(code), Error: string(code)}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mode authform.Mode
		form authform.Form
		want map[string]string
	}{
		{
			name: "empty login",
			form: authform.Form{},
			want: map[string]string{"email": "Email is required", "password": "Password is required"},
		},
		{
			name: "bad email and short password",
			form: authform.Form{Email: "bad", Password: "123"},
			want: map[string]string{"email": "Please enter a valid email", "password": "Password must be at least 6 characters"},
		},
		{
			name: "whitespace password is missing",
			form: authform.Form{Email: "a@b.co", Password: "      "},
			want: map[string]string{"password": "Password is required"},
		},
		{
			name: "name not needed to log in",
			form: authform.Form{Email: "a@b.co", Password: "secret1"},
		},
		{
			name: "name required to sign up",
			mode: authform.ModeSignup,
			form: authform.Form{Email: "a@b.co", Password: "secret1", Name: " "},
			want: map[string]string{"name": "Name is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := tt.form.Validate(tt.mode)
			if tt.want == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, errs.Map())
		})
	}
}

func TestSubmit_ValidationStopsBeforeProvider(t *testing.T) {
	t.Parallel()
	actions := &fakeActions{}
	c := authform.New(actions, authform.WithForm(authform.Form{Email: "bad", Password: "123"}))

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Invalid())
	assert.Equal(t, "Please enter a valid email", out.Errors["email"])
	assert.Equal(t, "Password must be at least 6 characters", out.Errors["password"])
	assert.Empty(t, actions.calls)
	assert.False(t, c.Submitting())

	c.Edit(authform.FieldEmail, "ann@example.com")
	errs := c.Errors()
	assert.NotContains(t, errs, "email")
	assert.Equal(t, "Password must be at least 6 characters", errs["password"])
}

func TestSubmit_ProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code identity.Code
		want string
	}{
		{identity.CodeUserNotFound, "No user found with this email address."},
		{identity.CodeWrongPassword, "Incorrect password."},
		{identity.CodeEmailAlreadyInUse, "An account with this email already exists."},
		{identity.CodeTooManyRequests, "Too many failed attempts. Please try again later."},
		{identity.CodeInternal, "An error occurred. Please try again."},
		{identity.Code("auth/something-new"), "An error occurred. Please try again."},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			t.Parallel()
			actions := &fakeActions{result: failure(tt.code)}
			c := authform.New(actions, authform.WithForm(authform.Form{Email: "ann@example.com", Password: "secret1"}))

			out, err := c.Submit(context.Background())
			require.NoError(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, string(tt.code), out.Code)
			assert.Equal(t, tt.want, out.FormError())
			assert.Equal(t, tt.want, c.Errors()[authform.FieldSubmit])
			assert.False(t, c.Submitting(), "submitting is cleared after a provider error")
			assert.Equal(t, []string{"signin:ann@example.com:secret1"}, actions.calls)
		})
	}
}

func TestSubmit_Signup(t *testing.T) {
	t.Parallel()
	actions := &fakeActions{result: session.OK()}
	c := authform.New(actions, authform.WithMode(authform.ModeSignup))
	c.Edit(authform.FieldEmail, "ann@example.com")
	c.Edit(authform.FieldPassword, "secret1")
	c.Edit(authform.FieldName, "Ann")
	c.Edit("unknown", "ignored")

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, c.Errors())
	assert.Equal(t, []string{"signup:ann@example.com:secret1:Ann"}, actions.calls)
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	t.Parallel()
	actions := &fakeActions{
		result:  session.OK(),
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	c := authform.New(actions, authform.WithForm(authform.Form{Email: "ann@example.com", Password: "secret1"}))

	done := make(chan authform.Outcome)
	go func() {
		out, _ := c.Submit(context.Background())
		done <- out
	}()
	<-actions.entered
	assert.True(t, c.Submitting())

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, authform.ErrSubmitInProgress)
	_, err = c.OAuth(context.Background(), identity.ProviderGoogle, identity.Callback{})
	assert.ErrorIs(t, err, authform.ErrSubmitInProgress)

	c.SetMode(authform.ModeSignup)
	assert.Equal(t, authform.ModeLogin, c.Mode(), "mode is locked while submitting")

	close(actions.block)
	assert.True(t, (<-done).Success)
	assert.False(t, c.Submitting())
	assert.Len(t, actions.calls, 1)
}

func TestSetMode(t *testing.T) {
	t.Parallel()
	c := authform.New(&fakeActions{}, authform.WithForm(authform.Form{Email: "x"}))
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, c.Errors())

	c.SetMode(authform.ModeSignup)
	assert.Equal(t, authform.ModeSignup, c.Mode())
	assert.Empty(t, c.Errors())
	assert.Equal(t, authform.Form{}, c.Form())
	assert.Equal(t, authform.ModeSignup, authform.ParseMode("SignUp"))
	assert.Equal(t, authform.ModeLogin, authform.ParseMode("other"))
}

func TestOAuth(t *testing.T) {
	t.Parallel()

	t.Run("linkedin never reaches the provider", func(t *testing.T) {
		t.Parallel()
		actions := &fakeActions{result: session.OK()}
		c := authform.New(actions)

		out, err := c.OAuth(context.Background(), identity.ProviderLinkedIn, identity.Callback{})
		require.NoError(t, err)
		assert.Equal(t, "LinkedIn sign-in is coming soon! Please use Google, Facebook, or email to continue.", out.FormError())
		assert.Equal(t, string(identity.CodeNotSupported), out.Code)
		assert.Empty(t, actions.calls)
		assert.False(t, c.Submitting())
	})

	t.Run("popup closed", func(t *testing.T) {
		t.Parallel()
		c := authform.New(&fakeActions{result: failure(identity.CodePopupClosed)})
		out, err := c.OAuth(context.Background(), identity.ProviderGoogle, identity.Callback{Error: "access_denied"})
		require.NoError(t, err)
		assert.Equal(t, "Login popup was closed. Please try again.", out.FormError())
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		c := authform.New(&fakeActions{result: failure(identity.CodeCancelledPopup)})
		out, err := c.OAuth(context.Background(), identity.ProviderFacebook, identity.Callback{})
		require.NoError(t, err)
		assert.Equal(t, "Login request was cancelled.", out.FormError())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		actions := &fakeActions{result: session.OK()}
		out, err := authform.New(actions).OAuth(context.Background(), identity.ProviderFacebook, identity.Callback{Code: "c"})
		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, []string{"oauth:facebook"}, actions.calls)
	})
}
