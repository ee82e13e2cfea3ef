// Package editor is the facade for mutating operations: it gates writes on
// the rate limiter, computes the masked before/after diff, performs the
// mutation through the gateway, and hands the result to the activity ledger.
// Reads go straight to the gateway; only edits pass through here.
package editor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
	"github.com/alexanderovie/fascinante-listings/gateway"
	"github.com/alexanderovie/fascinante-listings/ledger"
	"github.com/alexanderovie/fascinante-listings/logging"
)

// Gateway is the slice of the API gateway the coordinator mutates through.
type Gateway interface {
	GetLocation(ctx context.Context, principalID, name, readMask string) (gateway.Location, error)
	UpdateLocation(ctx context.Context, principalID, name, updateMask string, patch gateway.Location) (gateway.Location, error)
	DeleteLocation(ctx context.Context, principalID, name string) error
	CreateAdmin(ctx context.Context, principalID, accountName string, admin gateway.Admin) (*gateway.Admin, error)
	DeleteAdmin(ctx context.Context, principalID, adminName string) error
	StartVerification(ctx context.Context, principalID, locationName, method string) (gateway.Verification, error)
}

// Admitter gates edit volume per resource.
type Admitter interface {
	Allow(resourceID string) bool
	WaitTime(resourceID string) time.Duration
}

// Recorder receives the audit event for a completed mutation.
type Recorder interface {
	Record(ctx context.Context, ev *ledger.ActivityEvent) error
}

type Coordinator struct {
	gw      Gateway
	limiter Admitter
	ledger  Recorder
	log     logging.Logger
}

func NewCoordinator(gw Gateway, limiter Admitter, rec Recorder, log logging.Logger) *Coordinator {
	return &Coordinator{gw: gw, limiter: limiter, ledger: rec, log: log}
}

// UpdateLocation performs one gated, audited location edit. A denied
// admission fails immediately with the computed wait hint; nothing is
// queued and no upstream call is made. Ledger failures never fail the
// mutation itself.
func (c *Coordinator) UpdateLocation(ctx context.Context, principalID, accountID, locationName, updateMask string, patch gateway.Location) (gateway.Location, error) {
	if err := c.admit(locationName); err != nil {
		return nil, err
	}

	before := c.snapshot(ctx, principalID, locationName, preReadMask(updateMask))

	after, err := c.gw.UpdateLocation(ctx, principalID, locationName, updateMask, patch)
	if err != nil {
		return nil, err
	}

	c.record(ctx, &ledger.ActivityEvent{
		PrincipalID: principalID,
		EntityID:    locationName,
		AccountID:   accountID,
		Action:      ledger.ActionLocationEdit,
		Changes:     Diff(before, after, updateMask),
		Metadata:    map[string]any{"update_mask": updateMask},
	})

	return after, nil
}

// DeleteLocation removes a location and records what was lost. The audit
// entry carries the last known field values from a best-effort pre-read.
func (c *Coordinator) DeleteLocation(ctx context.Context, principalID, accountID, locationName string) error {
	if err := c.admit(locationName); err != nil {
		return err
	}

	before := c.snapshot(ctx, principalID, locationName, "name,title")

	if err := c.gw.DeleteLocation(ctx, principalID, locationName); err != nil {
		return err
	}

	c.record(ctx, &ledger.ActivityEvent{
		PrincipalID: principalID,
		EntityID:    locationName,
		AccountID:   accountID,
		Action:      ledger.ActionLocationDelete,
		Changes:     Diff(before, nil, "title"),
	})

	return nil
}

// AddAdmin grants a new manager on an account and records the change.
func (c *Coordinator) AddAdmin(ctx context.Context, principalID, accountName, email, role string) (*gateway.Admin, error) {
	if err := c.admit(accountName); err != nil {
		return nil, err
	}

	created, err := c.gw.CreateAdmin(ctx, principalID, accountName, gateway.Admin{Admin: email, Role: role})
	if err != nil {
		return nil, err
	}

	c.record(ctx, &ledger.ActivityEvent{
		PrincipalID: principalID,
		EntityID:    accountName,
		AccountID:   accountName,
		Action:      ledger.ActionAdminAdd,
		Metadata:    map[string]any{"admin": email, "role": role},
	})

	return created, nil
}

// RemoveAdmin revokes a manager by its full resource name and records the
// change against the owning account.
func (c *Coordinator) RemoveAdmin(ctx context.Context, principalID, accountName, adminName string) error {
	if err := c.admit(accountName); err != nil {
		return err
	}

	if err := c.gw.DeleteAdmin(ctx, principalID, adminName); err != nil {
		return err
	}

	c.record(ctx, &ledger.ActivityEvent{
		PrincipalID: principalID,
		EntityID:    accountName,
		AccountID:   accountName,
		Action:      ledger.ActionAdminRemove,
		Metadata:    map[string]any{"admin_name": adminName},
	})

	return nil
}

// StartVerification begins ownership verification for a location and
// records the attempt.
func (c *Coordinator) StartVerification(ctx context.Context, principalID, accountID, locationName, method string) (gateway.Verification, error) {
	if err := c.admit(locationName); err != nil {
		return nil, err
	}

	v, err := c.gw.StartVerification(ctx, principalID, locationName, method)
	if err != nil {
		return nil, err
	}

	c.record(ctx, &ledger.ActivityEvent{
		PrincipalID: principalID,
		EntityID:    locationName,
		AccountID:   accountID,
		Action:      ledger.ActionVerificationStart,
		Metadata:    map[string]any{"method": method},
	})

	return v, nil
}

func (c *Coordinator) admit(resourceID string) error {
	if c.limiter.Allow(resourceID) {
		return nil
	}
	wait := c.limiter.WaitTime(resourceID)
	return apierrors.New(apierrors.KindRateLimitExceeded, 429,
		fmt.Sprintf("edit limit reached for %s; retry in %s", resourceID, wait.Round(time.Second))).
		WithRetryAfter(wait)
}

// snapshot is the best-effort pre-mutation read. A failure leaves the old
// values empty but must not block the mutation.
func (c *Coordinator) snapshot(ctx context.Context, principalID, locationName, readMask string) gateway.Location {
	before, err := c.gw.GetLocation(ctx, principalID, locationName, readMask)
	if err != nil {
		c.log.Warn(ctx, "pre-mutation read failed", "location", locationName, "error", err.Error())
		return nil
	}
	return before
}

func (c *Coordinator) record(ctx context.Context, ev *ledger.ActivityEvent) {
	if err := c.ledger.Record(ctx, ev); err != nil {
		c.log.Error(ctx, "activity record failed", "entity", ev.EntityID, "error", err.Error())
	}
}

// preReadMask widens an update mask so the snapshot keeps its resource
// name; the provider returns only the masked fields on reads.
func preReadMask(updateMask string) string {
	for _, field := range strings.Split(updateMask, ",") {
		if strings.TrimSpace(field) == "name" {
			return updateMask
		}
	}
	return updateMask + ",name"
}
