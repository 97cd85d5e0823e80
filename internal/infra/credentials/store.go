package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"hordeclient/internal/infra"
	"hordeclient/internal/sqlinline"
)

const (
	ProviderHorde = "horde"
)

// Store keeps per-provider API tokens in the database so a key pasted once
// survives restarts even when the environment variable is absent.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) HordeAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderHorde)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetHordeAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("horde api key is required")
	}
	return s.upsert(ctx, ProviderHorde, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
