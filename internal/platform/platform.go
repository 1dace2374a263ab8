// Package platform is the client side of the hosted application platform:
// remote functions, the entity store, auth and file upload.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Remote function names. The functions themselves are owned by the platform.
const (
	FnGenerateDocument             = "generateDocument"
	FnShareDocumentCrossApp        = "shareDocumentCrossApp"
	FnSyncDocumentToApp            = "syncDocumentToApp"
	FnGetDocumentShareStats        = "getDocumentShareStats"
	FnGetSharedDocumentsCrossApp   = "getSharedDocumentsCrossApp"
	FnRevokeDocumentShareCrossApp  = "revokeDocumentShareCrossApp"
	FnBatchRevokeShares            = "batchRevokeShares"
	FnTrackShareDownload           = "trackShareDownload"
	FnBatchExportDocuments         = "batchExportDocuments"
	FnBatchDeleteDocuments         = "batchDeleteDocuments"
	FnCreateSelfDisclosureForm     = "createSelfDisclosureForm"
	FnGetSelfDisclosureSubmissions = "getSelfDisclosureSubmissions"
	FnSendDocumentRequest          = "sendDocumentRequest"
	FnSendDocumentEmail            = "sendDocumentEmail"
	FnSaveDocument                 = "saveDocument"
	FnGetAppPricing                = "getAppPricing"
	FnGetCrossSellRecommendations  = "getCrossSellRecommendations"
	FnGetBuildingsSummary          = "getBuildingsSummary"
	FnGetMetersWithReadings        = "getMetersWithReadings"
	FnGetEcosystemApps             = "getEcosystemApps"
	FnCheckAppAccess               = "checkAppAccess"
)

// Entity names in the hosted store.
const (
	EntityGeneratedDocument = "GeneratedDocument"
	EntitySavedCalculation  = "SavedCalculation"
	EntityUser              = "User"
)

// Response is the {data} envelope returned by a remote function.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Status int             `json:"-"`
}

// Decode unmarshals Data into v.
func (r *Response) Decode(v interface{}) error {
	if r == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// NewResponse wraps v as a successful response.
func NewResponse(v interface{}) *Response {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte("null")
	}
	return &Response{Data: raw, Status: 200}
}

// Invoker calls a named remote function.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload interface{}) (*Response, error)
}

// Entities is the hosted entity store. out may be nil when the caller does
// not need the stored record.
type Entities interface {
	Filter(ctx context.Context, entity string, query map[string]interface{}, sort string, limit int, out interface{}) error
	Create(ctx context.Context, entity string, record interface{}, out interface{}) error
	Update(ctx context.Context, entity, id string, patch interface{}, out interface{}) error
	Delete(ctx context.Context, entity, id string) error
}

// User is the authenticated platform user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type Auth interface {
	Me(ctx context.Context) (*User, error)
}

type Uploader interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (string, error)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token. It takes precedence over the
// configured API key.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
