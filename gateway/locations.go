package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alexanderovie/fascinante-listings/apierrors"
)

// Location is a business location as the provider returns it. The access
// layer routes and diffs it but does not model the provider's full schema,
// so it stays a loose map with helpers for the fields we must inspect.
type Location map[string]any

// ResourceName returns the location's "locations/{id}" name, or "".
func (l Location) ResourceName() string {
	name, _ := l["name"].(string)
	return name
}

// Title returns the display title, or "".
func (l Location) Title() string {
	title, _ := l["title"].(string)
	return title
}

type listLocationsResponse struct {
	Locations     []Location `json:"locations"`
	NextPageToken string     `json:"nextPageToken"`
}

// ListLocations pages through an account's locations. readMask scopes the
// returned fields; pageToken continues a prior listing.
func (c *Client) ListLocations(ctx context.Context, principalID, accountName, readMask string, pageSize int, pageToken string) ([]Location, string, error) {
	if accountName == "" {
		return nil, "", apierrors.New(apierrors.KindInvalidRequest, 0, "account name is required")
	}

	query := url.Values{}
	if readMask != "" {
		query.Set("readMask", readMask)
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var resp listLocationsResponse
	if err := c.do(ctx, principalID, http.MethodGet, GroupBusiness, "/"+accountName+"/locations", query, nil, &resp); err != nil {
		return nil, "", err
	}

	for _, loc := range resp.Locations {
		if loc.ResourceName() == "" {
			return nil, "", apierrors.New(apierrors.KindValidationError, 0,
				"location listing contains an entry without a name")
		}
	}
	if resp.Locations == nil {
		return []Location{}, resp.NextPageToken, nil
	}
	return resp.Locations, resp.NextPageToken, nil
}

// GetLocation fetches one location by resource name, scoped to readMask.
func (c *Client) GetLocation(ctx context.Context, principalID, name, readMask string) (Location, error) {
	if name == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "location name is required")
	}

	query := url.Values{}
	if readMask != "" {
		query.Set("readMask", readMask)
	}

	var loc Location
	if err := c.do(ctx, principalID, http.MethodGet, GroupBusiness, "/"+name, query, nil, &loc); err != nil {
		return nil, err
	}
	if loc.ResourceName() == "" {
		return nil, apierrors.New(apierrors.KindValidationError, 0, "location response missing name")
	}
	return loc, nil
}

// DeleteLocation removes a location permanently.
func (c *Client) DeleteLocation(ctx context.Context, principalID, name string) error {
	if name == "" {
		return apierrors.New(apierrors.KindInvalidRequest, 0, "location name is required")
	}
	return c.do(ctx, principalID, http.MethodDelete, GroupBusiness, "/"+name, nil, nil, nil)
}

// Verification is the provider's record of a started verification attempt.
type Verification map[string]any

// StartVerification kicks off ownership verification for a location using
// the given method (POSTCARD, PHONE_CALL, EMAIL, ...).
func (c *Client) StartVerification(ctx context.Context, principalID, locationName, method string) (Verification, error) {
	if locationName == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "location name is required")
	}
	if method == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "verification method is required")
	}

	var resp struct {
		Verification Verification `json:"verification"`
	}
	body := map[string]string{"method": method}
	if err := c.do(ctx, principalID, http.MethodPost, GroupBusiness, "/"+locationName+":verify", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Verification == nil {
		return nil, apierrors.New(apierrors.KindValidationError, 0, "verification response missing verification")
	}
	return resp.Verification, nil
}

// UpdateLocation patches the fields named in updateMask and returns the
// post-mutation state the provider echoes back.
func (c *Client) UpdateLocation(ctx context.Context, principalID, name, updateMask string, patch Location) (Location, error) {
	if name == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "location name is required")
	}
	if updateMask == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "update mask is required")
	}

	query := url.Values{}
	query.Set("updateMask", updateMask)

	var updated Location
	if err := c.do(ctx, principalID, http.MethodPatch, GroupBusiness, "/"+name, query, patch, &updated); err != nil {
		return nil, err
	}
	if updated.ResourceName() == "" {
		return nil, apierrors.New(apierrors.KindValidationError, 0, "update response missing name")
	}
	return updated, nil
}
