package identity

import "slices"

// Factory builds one Client per browser session over shared stores.
type Factory struct {
	accounts AccountStore
	opts     []Option
}

func NewFactory(accounts AccountStore, opts ...Option) *Factory {
	return &Factory{accounts: accounts, opts: opts}
}

// NewClient returns a client persisting its sign-in under sessionKey.
func (f *Factory) NewClient(sessionKey string) *Client {
	opts := append(slices.Clone(f.opts), WithSessionKey(sessionKey))
	return NewClient(f.accounts, opts...)
}
