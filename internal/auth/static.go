package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errEmptyToken = errors.New("static token is empty")

// StaticToken sends a bearer token supplied up front through auth.static_token
// or WSBENCH_AUTH_STATIC_TOKEN. Every run reuses it unchanged.
type StaticToken struct {
	token string
}

// NewStaticToken normalizes a pasted token: surrounding whitespace (a
// trailing newline from a file or env var) and a leading "Bearer " scheme
// are dropped.
func NewStaticToken(token string) *StaticToken {
	token = strings.TrimSpace(token)
	if fields := strings.Fields(token); len(fields) > 0 && strings.EqualFold(fields[0], "Bearer") {
		token = strings.TrimSpace(token[len(fields[0]):])
	}
	return &StaticToken{token: token}
}

func (s *StaticToken) Token(context.Context) (string, error) {
	if s.token == "" {
		return "", errEmptyToken
	}
	return s.token, nil
}

func (s *StaticToken) InjectHeader(ctx context.Context, h http.Header) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}
	setBearer(h, token)
	return nil
}

func (*StaticToken) Close() error { return nil }
