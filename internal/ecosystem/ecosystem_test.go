package ecosystem

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"immo-workers/internal/common/cache"
	"immo-workers/internal/common/database"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/platform"
	"immo-workers/internal/platform/platformtest"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func uncached(inv platform.Invoker) *Service {
	return NewService(inv, nil)
}

func TestApps_UnwrapsList(t *testing.T) {
	tests := []struct {
		name     string
		response interface{}
	}{
		{name: "bare list", response: []App{{ID: "hausverwaltung", Name: "Hausverwaltung"}}},
		{name: "wrapped list", response: map[string]interface{}{
			"apps": []App{{ID: "hausverwaltung", Name: "Hausverwaltung"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &platformtest.MockInvoker{}
			inv.On("Invoke", mock.Anything, platform.FnGetEcosystemApps, mock.Anything).
				Return(platform.NewResponse(tt.response), nil)

			apps, err := uncached(inv).Apps(context.Background())
			require.NoError(t, err)
			require.Len(t, apps, 1)
			assert.Equal(t, "Hausverwaltung", apps[0].Name)
		})
	}
}

func TestApps_CachedInRedis(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	c := cache.New(database.NewRedisFromClient(client), "eco", time.Minute, logger.NewTestLogger(t))

	apps := []App{{ID: "zaehler", Name: "Zählerverwaltung"}}
	payload, _ := json.Marshal(apps)
	redisMock.ExpectGet("eco:apps").RedisNil()
	redisMock.ExpectSet("eco:apps", payload, time.Minute).SetVal("OK")
	redisMock.ExpectGet("eco:apps").SetVal(string(payload))

	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnGetEcosystemApps, mock.Anything).
		Return(platform.NewResponse(apps), nil).Once()

	svc := NewService(inv, c)
	for i := 0; i < 2; i++ {
		got, err := svc.Apps(context.Background())
		require.NoError(t, err)
		assert.Equal(t, apps, got)
	}
	inv.AssertNumberOfCalls(t, "Invoke", 1)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCheckAccess(t *testing.T) {
	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnCheckAppAccess, map[string]interface{}{
		"user_email": "anna@example.com", "app_id": "zaehler",
	}).Return(platform.NewResponse(map[string]interface{}{"has_access": true, "plan": "pro"}), nil)

	access, err := uncached(inv).CheckAccess(context.Background(), "anna@example.com", "zaehler")
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
	assert.Equal(t, "zaehler", access.AppID)
	assert.Equal(t, "pro", access.Plan)

	_, err = uncached(inv).CheckAccess(context.Background(), "anna@example.com", "")
	assert.Equal(t, errors.ErrCodeMissingRequiredField, errors.AsStandard(err).Code)
}

func TestRefreshAccess_DropsCachedEntry(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	c := cache.New(database.NewRedisFromClient(client), "eco", time.Minute, logger.NewTestLogger(t))

	stale, _ := json.Marshal(Access{HasAccess: false})
	fresh, _ := json.Marshal(Access{HasAccess: true, Plan: "pro"})
	key := "eco:access:anna@example.com:zaehler"
	redisMock.ExpectGet(key).SetVal(string(stale))
	redisMock.ExpectDel(key).SetVal(1)
	redisMock.ExpectGet(key).RedisNil()
	redisMock.ExpectSet(key, fresh, time.Minute).SetVal("OK")

	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnCheckAppAccess, mock.Anything).
		Return(platform.NewResponse(map[string]interface{}{"has_access": true, "plan": "pro"}), nil).Once()

	svc := NewService(inv, c)
	access, err := svc.CheckAccess(context.Background(), "anna@example.com", "zaehler")
	require.NoError(t, err)
	assert.False(t, access.HasAccess)

	access, err = svc.RefreshAccess(context.Background(), "anna@example.com", "zaehler")
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
	inv.AssertNumberOfCalls(t, "Invoke", 1)
	assert.NoError(t, redisMock.ExpectationsWereMet())

	_, err = svc.RefreshAccess(context.Background(), "anna@example.com", "")
	assert.Equal(t, errors.ErrCodeMissingRequiredField, errors.AsStandard(err).Code)
}

func TestRefreshAccess_WithoutCache(t *testing.T) {
	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnCheckAppAccess, mock.Anything).
		Return(platform.NewResponse(map[string]interface{}{"has_access": true}), nil)

	access, err := uncached(inv).RefreshAccess(context.Background(), "anna@example.com", "zaehler")
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
}

func TestPricing_DefaultsCurrency(t *testing.T) {
	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnGetAppPricing, mock.Anything).
		Return(platform.NewResponse(Pricing{AppID: "zaehler", Plans: []Plan{{ID: "basic", PriceMonthly: 9.9}}}), nil)

	pricing, err := uncached(inv).Pricing(context.Background(), "zaehler")
	require.NoError(t, err)
	assert.Equal(t, "EUR", pricing.Currency)
	assert.InDelta(t, 9.9, pricing.Plans[0].PriceMonthly, 1e-9)
}

func TestCrossSellBuildingsMeters(t *testing.T) {
	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnGetCrossSellRecommendations, mock.Anything).
		Return(platform.NewResponse(map[string]interface{}{
			"recommendations": []Recommendation{{AppID: "hausverwaltung", Title: "Objekte verwalten"}},
		}), nil)
	inv.On("Invoke", mock.Anything, platform.FnGetBuildingsSummary, mock.Anything).
		Return(platform.NewResponse(BuildingsSummary{TotalBuildings: 2, TotalUnits: 12, OccupancyRate: 91.7}), nil)
	inv.On("Invoke", mock.Anything, platform.FnGetMetersWithReadings, map[string]interface{}{
		"user_email": "anna@example.com", "building_id": "b1",
	}).Return(platform.NewResponse([]Meter{{ID: "m1", Type: "strom", Readings: []Reading{{Date: "2026-01-01", Value: 1234.5}}}}), nil)

	svc := uncached(inv)
	ctx := context.Background()

	recs, err := svc.CrossSell(ctx, "anna@example.com", "immo-rechner")
	require.NoError(t, err)
	assert.Equal(t, "hausverwaltung", recs[0].AppID)

	summary, err := svc.Buildings(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalUnits)

	meters, err := svc.Meters(ctx, "anna@example.com", "b1")
	require.NoError(t, err)
	require.Len(t, meters[0].Readings, 1)
	assert.InDelta(t, 1234.5, meters[0].Readings[0].Value, 1e-9)
}

func TestLookup_Errors(t *testing.T) {
	inv := &platformtest.MockInvoker{}
	inv.On("Invoke", mock.Anything, platform.FnGetBuildingsSummary, mock.Anything).
		Return(nil, errors.NewPlatformError(platform.FnGetBuildingsSummary, 502, stderrors.New("bad gateway")))
	inv.On("Invoke", mock.Anything, platform.FnGetEcosystemApps, mock.Anything).
		Return(&platform.Response{Data: json.RawMessage(`"nope"`), Status: 200}, nil)

	_, err := uncached(inv).Buildings(context.Background(), "anna@example.com")
	assert.Equal(t, errors.ErrCodePlatformInvokeFailed, errors.AsStandard(err).Code)

	_, err = uncached(inv).Apps(context.Background())
	assert.Equal(t, errors.ErrCodePlatformInvokeFailed, errors.AsStandard(err).Code)
}
