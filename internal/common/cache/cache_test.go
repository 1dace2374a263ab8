package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"immo-workers/internal/common/database"
	"immo-workers/internal/common/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func TestGetOrLoad(t *testing.T) {
	loaded := []item{{Name: "Hausverwaltung", Price: 19.9}}
	payload, _ := json.Marshal(loaded)

	tests := []struct {
		name      string
		setup     func(m redismock.ClientMock)
		wantLoads int
	}{
		{
			name: "miss loads and stores",
			setup: func(m redismock.ClientMock) {
				m.ExpectGet("eco:apps").RedisNil()
				m.ExpectSet("eco:apps", payload, 5*time.Minute).SetVal("OK")
			},
			wantLoads: 1,
		},
		{
			name: "hit skips loader",
			setup: func(m redismock.ClientMock) {
				m.ExpectGet("eco:apps").SetVal(string(payload))
			},
			wantLoads: 0,
		},
		{
			name: "redis down still loads",
			setup: func(m redismock.ClientMock) {
				m.ExpectGet("eco:apps").SetErr(stderrors.New("connection refused"))
				m.ExpectSet("eco:apps", payload, 5*time.Minute).SetErr(stderrors.New("connection refused"))
			},
			wantLoads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, redisMock := redismock.NewClientMock()
			tt.setup(redisMock)
			c := New(database.NewRedisFromClient(client), "eco", 5*time.Minute, logger.NewTestLogger(t))

			loads := 0
			got, err := GetOrLoad(context.Background(), c, c.Key("apps"), func(ctx context.Context) ([]item, error) {
				loads++
				return loaded, nil
			})
			require.NoError(t, err)
			assert.Equal(t, loaded, got)
			assert.Equal(t, tt.wantLoads, loads)
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestGetOrLoad_LoaderErrorNotCached(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet("eco:x").RedisNil()
	c := New(database.NewRedisFromClient(client), "eco", time.Minute, nil)

	_, err := GetOrLoad(context.Background(), c, "eco:x", func(ctx context.Context) (int, error) {
		return 0, stderrors.New("platform down")
	})
	assert.Error(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestGetOrLoad_NilCache(t *testing.T) {
	got, err := GetOrLoad(context.Background(), nil, "k", func(ctx context.Context) (string, error) {
		return "direkt", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direkt", got)
}

func TestKey(t *testing.T) {
	c := New(nil, "eco", time.Minute, nil)
	assert.Equal(t, "eco:access:anna@example.com:hausverwaltung", c.Key("access", "anna@example.com", "hausverwaltung"))
}
