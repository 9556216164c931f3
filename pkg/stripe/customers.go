package stripe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
)

// MetadataUserIDKey is the customer metadata tag linking a provider customer
// back to the identity-provider user.
const MetadataUserIDKey = "user_id"

// SearchCustomerByUserID finds the customer tagged with the given user id, or
// nil when none exists.
func (c *Client) SearchCustomerByUserID(ctx context.Context, userID string) (*stripe.Customer, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, nil
	}

	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("metadata['%s']:'%s'", MetadataUserIDKey, trimmed),
			Context: ctx,
		},
	}
	params.Limit = stripe.Int64(1)

	iter := customer.Search(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("search customer by user id: %w", err)
	}
	return nil, nil
}

// ListCustomersByEmail returns the first customer with an exact email match,
// or nil when none exists.
func (c *Client) ListCustomersByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return nil, nil
	}

	params := &stripe.CustomerListParams{Email: stripe.String(trimmed)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := customer.List(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list customers by email: %w", err)
	}
	return nil, nil
}

// CreateCustomer creates a provider customer tagged with the user id. The
// idempotency key is deterministic over (userID, email) so concurrent
// duplicate calls converge on one customer record.
func (c *Client) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.SetIdempotencyKey(CustomerIdempotencyKey(userID, email))
	params.AddMetadata(MetadataUserIDKey, strings.TrimSpace(userID))
	if trimmed := strings.TrimSpace(email); trimmed != "" {
		params.Email = stripe.String(trimmed)
	}

	created, err := customer.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

// AttachUserID tags an existing customer with the user id metadata. Used when
// a customer was found by email without the identity linkage.
func (c *Client) AttachUserID(ctx context.Context, customerID, userID string) error {
	if c == nil {
		return errAPIKeyRequired
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, strings.TrimSpace(userID))

	if _, err := customer.Update(customerID, params); err != nil {
		return fmt.Errorf("attach user id metadata: %w", err)
	}
	return nil
}

// CustomerIdempotencyKey derives the deterministic creation key for a
// (userID, email) pair.
func CustomerIdempotencyKey(userID, email string) string {
	seed := fmt.Sprintf("customer:%s:%s", strings.TrimSpace(userID), strings.ToLower(strings.TrimSpace(email)))
	sum := sha256.Sum256([]byte(seed))
	return "cus-create-" + hex.EncodeToString(sum[:16])
}
