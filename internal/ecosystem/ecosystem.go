// Package ecosystem looks up the other apps of the platform ecosystem:
// available apps, access, pricing, cross-sell and the building and meter
// data those apps own.
package ecosystem

import (
	"context"
	"encoding/json"

	"immo-workers/internal/common/cache"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/platform"
)

type App struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Category    string `json:"category,omitempty"`
}

type Access struct {
	AppID     string `json:"app_id"`
	HasAccess bool   `json:"has_access"`
	Plan      string `json:"plan,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type Plan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PriceMonthly float64  `json:"price_monthly"`
	PriceYearly  float64  `json:"price_yearly,omitempty"`
	Features     []string `json:"features,omitempty"`
}

type Pricing struct {
	AppID    string `json:"app_id"`
	Currency string `json:"currency"`
	Plans    []Plan `json:"plans"`
}

type Recommendation struct {
	AppID  string  `json:"app_id"`
	Title  string  `json:"title"`
	Reason string  `json:"reason,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

type Building struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Units       int    `json:"units"`
	VacantUnits int    `json:"vacant_units"`
}

type BuildingsSummary struct {
	TotalBuildings int        `json:"total_buildings"`
	TotalUnits     int        `json:"total_units"`
	OccupancyRate  float64    `json:"occupancy_rate"`
	Buildings      []Building `json:"buildings"`
}

type Reading struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type Meter struct {
	ID         string    `json:"id"`
	BuildingID string    `json:"building_id,omitempty"`
	Type       string    `json:"type"`
	Number     string    `json:"number,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	Readings   []Reading `json:"readings"`
}

// Service answers ecosystem lookups through a read-through cache.
type Service struct {
	invoker platform.Invoker
	cache   *cache.Cache
}

// NewService creates the lookup service. c may be nil to disable caching.
func NewService(invoker platform.Invoker, c *cache.Cache) *Service {
	return &Service{invoker: invoker, cache: c}
}

func (s *Service) Apps(ctx context.Context) ([]App, error) {
	return lookup[[]App](ctx, s, s.key("apps"), platform.FnGetEcosystemApps, map[string]interface{}{}, "apps")
}

func (s *Service) CheckAccess(ctx context.Context, user, appID string) (*Access, error) {
	if appID == "" {
		return nil, errors.NewMissingFieldError("app_id")
	}
	access, err := lookup[Access](ctx, s, s.key("access", user, appID), platform.FnCheckAppAccess,
		map[string]interface{}{"user_email": user, "app_id": appID}, "")
	if err != nil {
		return nil, err
	}
	if access.AppID == "" {
		access.AppID = appID
	}
	return &access, nil
}

// RefreshAccess drops the cached access answer for user and appID and asks
// the platform again, e.g. right after a purchase.
func (s *Service) RefreshAccess(ctx context.Context, user, appID string) (*Access, error) {
	if appID == "" {
		return nil, errors.NewMissingFieldError("app_id")
	}
	_ = s.cache.Invalidate(ctx, "access", user, appID)
	return s.CheckAccess(ctx, user, appID)
}

func (s *Service) Pricing(ctx context.Context, appID string) (*Pricing, error) {
	if appID == "" {
		return nil, errors.NewMissingFieldError("app_id")
	}
	pricing, err := lookup[Pricing](ctx, s, s.key("pricing", appID), platform.FnGetAppPricing,
		map[string]interface{}{"app_id": appID}, "")
	if err != nil {
		return nil, err
	}
	if pricing.Currency == "" {
		pricing.Currency = "EUR"
	}
	return &pricing, nil
}

func (s *Service) CrossSell(ctx context.Context, user, currentApp string) ([]Recommendation, error) {
	return lookup[[]Recommendation](ctx, s, s.key("xsell", user, currentApp), platform.FnGetCrossSellRecommendations,
		map[string]interface{}{"user_email": user, "current_app": currentApp}, "recommendations")
}

func (s *Service) Buildings(ctx context.Context, user string) (*BuildingsSummary, error) {
	summary, err := lookup[BuildingsSummary](ctx, s, s.key("buildings", user), platform.FnGetBuildingsSummary,
		map[string]interface{}{"user_email": user}, "")
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Service) Meters(ctx context.Context, user, buildingID string) ([]Meter, error) {
	payload := map[string]interface{}{"user_email": user}
	if buildingID != "" {
		payload["building_id"] = buildingID
	}
	return lookup[[]Meter](ctx, s, s.key("meters", user, buildingID), platform.FnGetMetersWithReadings, payload, "meters")
}

func (s *Service) key(parts ...string) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.Key(parts...)
}

// lookup invokes function through the cache. When key is set, a list
// response may be wrapped in an object under that name.
func lookup[T any](ctx context.Context, s *Service, cacheKey, function string, payload map[string]interface{}, key string) (T, error) {
	return cache.GetOrLoad(ctx, s.cache, cacheKey, func(ctx context.Context) (T, error) {
		var out T
		resp, err := s.invoker.Invoke(ctx, function, payload)
		if err != nil {
			return out, err
		}
		if err := decode(resp, key, &out); err != nil {
			return out, errors.NewPlatformError(function, resp.Status, err)
		}
		return out, nil
	})
}

func decode(resp *platform.Response, key string, out interface{}) error {
	if key != "" {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(resp.Data, &wrapped); err == nil {
			if inner, ok := wrapped[key]; ok {
				return (&platform.Response{Data: inner}).Decode(out)
			}
		}
	}
	return resp.Decode(out)
}
