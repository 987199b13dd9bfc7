package feedbin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
)

// CreateSubscriptionResult is one of SubscriptionCreated, SubscriptionChoices,
// AlreadySubscribed or SubscriptionNotFound.
type CreateSubscriptionResult interface {
	isCreateSubscriptionResult()
}

// SubscriptionCreated carries the new subscription.
type SubscriptionCreated struct {
	Subscription Subscription
}

// SubscriptionChoices lists the feeds found at an ambiguous URL; subscribe to one of them.
type SubscriptionChoices struct {
	Choices []SubscriptionChoice
}

// AlreadySubscribed means the account already follows the feed.
type AlreadySubscribed struct{}

// SubscriptionNotFound means no feed could be discovered at the URL.
type SubscriptionNotFound struct{}

func (SubscriptionCreated) isCreateSubscriptionResult()  {}
func (SubscriptionChoices) isCreateSubscriptionResult()  {}
func (AlreadySubscribed) isCreateSubscriptionResult()    {}
func (SubscriptionNotFound) isCreateSubscriptionResult() {}

// RetrieveSubscriptions lists the account's subscriptions.
func (c *Client) RetrieveSubscriptions(ctx context.Context) ([]Subscription, error) {
	query := url.Values{"mode": {"extended"}}
	return retrieveCached[Subscription](ctx, c, "subscriptions.json", query, KeySubscriptions)
}

// CreateSubscription subscribes to feedURL.
func (c *Client) CreateSubscription(ctx context.Context, feedURL string) (CreateSubscriptionResult, error) {
	const path = "subscriptions.json"

	resp, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    path,
		payload: map[string]string{"feed_url": feedURL},
	})
	if err != nil {
		code, ok := httpclient.StatusCode(err)
		if !ok {
			return nil, err
		}
		switch code {
		case http.StatusUnauthorized:
			// Feedbin answers 401 for some feeds the account already follows.
			return AlreadySubscribed{}, nil
		case http.StatusNotFound:
			return SubscriptionNotFound{}, nil
		default:
			return nil, err
		}
	}

	switch resp.StatusCode() {
	case http.StatusCreated:
		var sub Subscription
		ok, err := decodeBody(path, resp, &sub)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoData
		}
		return SubscriptionCreated{Subscription: sub}, nil
	case http.StatusMultipleChoices:
		var choices []SubscriptionChoice
		ok, err := decodeBody(path, resp, &choices)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoData
		}
		return SubscriptionChoices{Choices: choices}, nil
	case http.StatusFound:
		return AlreadySubscribed{}, nil
	default:
		return nil, &UnexpectedStatusError{Endpoint: path, Code: resp.StatusCode()}
	}
}

// RenameSubscription sets a custom title on the subscription.
func (c *Client) RenameSubscription(ctx context.Context, subscriptionID int, title string) error {
	_, err := c.do(ctx, call{
		method:  http.MethodPatch,
		path:    fmt.Sprintf("subscriptions/%d.json", subscriptionID),
		payload: map[string]string{"title": title},
	})
	return err
}

// DeleteSubscription unsubscribes.
func (c *Client) DeleteSubscription(ctx context.Context, subscriptionID int) error {
	_, err := c.do(ctx, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("subscriptions/%d.json", subscriptionID),
	})
	return err
}

// RetrieveIcons lists favicon URLs keyed by site host.
func (c *Client) RetrieveIcons(ctx context.Context) ([]Icon, error) {
	return retrieveCached[Icon](ctx, c, "icons.json", nil, KeyIcons)
}
