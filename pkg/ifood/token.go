package ifood

import (
	"context"
	"errors"
)

// StaticTokenProvider serves one pre-issued bearer token for every merchant.
// Deployments that rotate tokens plug their own TokenProvider into the client
// instead.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) (*StaticTokenProvider, error) {
	if token == "" {
		return nil, errors.New("api token required")
	}
	return &StaticTokenProvider{token: token}, nil
}

func (p *StaticTokenProvider) Token(_ context.Context, _ string) (string, error) {
	return p.token, nil
}
