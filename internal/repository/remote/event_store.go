// Package remote reads punch events from the upstream attendance REST API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/go-resty/resty/v2"
)

const (
	eventsPath      = "/attendance/events"
	defaultTimeout  = 10 * time.Second
	defaultPageSize = 500
	maxPages        = 1000
)

var (
	errTooManyPages    = errors.New("upstream pagination did not terminate")
	errForeignNextLink = errors.New("upstream next link leaves the configured base URL")
)

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
	PageSize   int
}

type eventStoreImpl struct {
	client   *resty.Client
	base     *url.URL
	pageSize int
}

// NewEventStore builds a resty-backed punch.Store. Every response is decoded
// as a punch.EventEnvelope and pages are followed through its next link.
func NewEventStore(opts Options) punch.Store {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		base = &url.URL{}
	}

	return &eventStoreImpl{client: client, base: base, pageSize: opts.PageSize}
}

// FetchEvents implements punch.EventStore.
func (s *eventStoreImpl) FetchEvents(ctx context.Context, q punch.EventQuery) ([]punch.PunchEvent, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := map[string]string{
		"start":     q.Start.UTC().Format(time.RFC3339),
		"end":       q.End.UTC().Format(time.RFC3339),
		"page_size": strconv.Itoa(s.pageSize),
	}
	if q.UserID != nil {
		params["user_id"] = *q.UserID
	}

	var events []punch.PunchEvent
	req := s.client.R().SetQueryParams(params)
	link := eventsPath
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%w: %w", punch.ErrDataUnavailable, errTooManyPages)
		}

		var envelope punch.EventEnvelope
		resp, err := req.SetContext(ctx).SetResult(&envelope).Get(link)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to call upstream events API: %w", punch.ErrDataUnavailable, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%w: upstream events API returned status %d", punch.ErrDataUnavailable, resp.StatusCode())
		}

		for _, r := range envelope.Results {
			e := r.ToEvent()
			if e.Timestamp.Before(q.Start) || !e.Timestamp.Before(q.End) {
				continue
			}
			if q.UserID != nil && e.UserID != *q.UserID {
				continue
			}
			events = append(events, e)
		}

		if envelope.Next == nil || *envelope.Next == "" {
			break
		}
		if err := s.checkNextLink(*envelope.Next); err != nil {
			return nil, fmt.Errorf("%w: %w", punch.ErrDataUnavailable, err)
		}
		// next links carry their own query string
		link = *envelope.Next
		req = s.client.R()
	}

	punch.SortByTime(events)
	return events, nil
}

// checkNextLink keeps pagination, and the bearer token sent with it, on the
// configured upstream. Relative links are resolved against the base URL.
func (s *eventStoreImpl) checkNextLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid upstream next link: %w", err)
	}
	if u.Scheme == "" && u.Host == "" {
		return nil
	}
	if u.Scheme != "" && !strings.EqualFold(u.Scheme, s.base.Scheme) {
		return errForeignNextLink
	}
	if !strings.EqualFold(u.Host, s.base.Host) {
		return errForeignNextLink
	}
	return nil
}

// Append implements punch.EventWriter.
func (s *eventStoreImpl) Append(ctx context.Context, e punch.PunchEvent) (punch.PunchEvent, error) {
	if e.UserID == "" || !e.Direction.Valid() || e.Timestamp.IsZero() {
		return punch.PunchEvent{}, punch.ErrInvalidEvent
	}

	var saved punch.EventRecord
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(punch.FromEvent(e)).
		SetResult(&saved).
		Post(eventsPath)
	if err != nil {
		return punch.PunchEvent{}, fmt.Errorf("failed to post punch event: %w", err)
	}
	if resp.IsError() {
		return punch.PunchEvent{}, fmt.Errorf("upstream rejected punch event with status %d", resp.StatusCode())
	}

	return saved.ToEvent(), nil
}
