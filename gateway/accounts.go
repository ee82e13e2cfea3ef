package gateway

import (
	"context"
	"net/http"

	"github.com/alexanderovie/fascinante-listings/apierrors"
)

// Account is one entry from the identity group's account listing.
type Account struct {
	Name              string `json:"name"`
	AccountName       string `json:"accountName"`
	Type              string `json:"type"`
	Role              string `json:"role"`
	VerificationState string `json:"verificationState"`
}

type listAccountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

// ListAccounts returns the accounts the principal can manage.
func (c *Client) ListAccounts(ctx context.Context, principalID string) ([]Account, error) {
	var resp listAccountsResponse
	if err := c.do(ctx, principalID, http.MethodGet, GroupIdentity, "/accounts", nil, nil, &resp); err != nil {
		return nil, err
	}

	for _, a := range resp.Accounts {
		if a.Name == "" {
			return nil, apierrors.New(apierrors.KindValidationError, 0,
				"account listing contains an entry without a name")
		}
	}
	if resp.Accounts == nil {
		return []Account{}, nil
	}
	return resp.Accounts, nil
}

// Admin is one manager on an account in the identity group.
type Admin struct {
	Name  string `json:"name,omitempty"`
	Admin string `json:"admin"`
	Role  string `json:"role"`
}

type listAdminsResponse struct {
	AccountAdmins []Admin `json:"accountAdmins"`
}

// ListAdmins returns the managers of an account.
func (c *Client) ListAdmins(ctx context.Context, principalID, accountName string) ([]Admin, error) {
	if accountName == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "account name is required")
	}

	var resp listAdminsResponse
	if err := c.do(ctx, principalID, http.MethodGet, GroupIdentity, "/"+accountName+"/admins", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.AccountAdmins == nil {
		return []Admin{}, nil
	}
	return resp.AccountAdmins, nil
}

// CreateAdmin invites a new manager onto an account.
func (c *Client) CreateAdmin(ctx context.Context, principalID, accountName string, admin Admin) (*Admin, error) {
	if accountName == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "account name is required")
	}
	if admin.Admin == "" || admin.Role == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "admin identity and role are required")
	}

	var created Admin
	if err := c.do(ctx, principalID, http.MethodPost, GroupIdentity, "/"+accountName+"/admins", nil, admin, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		return nil, apierrors.New(apierrors.KindValidationError, 0, "admin response missing name")
	}
	return &created, nil
}

// DeleteAdmin removes a manager by its "accounts/{id}/admins/{id}" name.
func (c *Client) DeleteAdmin(ctx context.Context, principalID, adminName string) error {
	if adminName == "" {
		return apierrors.New(apierrors.KindInvalidRequest, 0, "admin name is required")
	}
	return c.do(ctx, principalID, http.MethodDelete, GroupIdentity, "/"+adminName, nil, nil, nil)
}

// GetAccount fetches a single account by its resource name
// ("accounts/{id}").
func (c *Client) GetAccount(ctx context.Context, principalID, name string) (*Account, error) {
	if name == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "account name is required")
	}

	var acc Account
	if err := c.do(ctx, principalID, http.MethodGet, GroupIdentity, "/"+name, nil, nil, &acc); err != nil {
		return nil, err
	}
	if acc.Name == "" {
		return nil, apierrors.New(apierrors.KindValidationError, 0, "account response missing name")
	}
	return &acc, nil
}
