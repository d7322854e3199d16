package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TaskPayload is the loosely-shaped body of a task status resource. The
// status vocabulary is owned by the platform; only the terminal states are
// interpreted here.
type TaskPayload map[string]interface{}

// Status returns the payload's status field, or "" when absent.
func (p TaskPayload) Status() string {
	s, _ := p["status"].(string)
	return s
}

// Terminal reports whether the task reached a terminal state. The match is
// case-insensitive.
func (p TaskPayload) Terminal() bool {
	switch strings.ToLower(p.Status()) {
	case "success", "failed", "completed":
		return true
	}
	return false
}

// Succeeded reports whether the task finished in a successful terminal
// state.
func (p TaskPayload) Succeeded() bool {
	switch strings.ToLower(p.Status()) {
	case "success", "completed":
		return true
	}
	return false
}

// PollOptions bound a polling loop.
type PollOptions struct {
	// Timeout is the overall polling deadline. Defaults to 2 minutes.
	Timeout time.Duration

	// Interval is the fixed suspension between status fetches. No
	// exponential growth: task durations are bounded and runs are
	// operator-supervised. Defaults to 3 seconds.
	Interval time.Duration
}

func (o *PollOptions) applyDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 2 * time.Minute
	}
	if o.Interval == 0 {
		o.Interval = 3 * time.Second
	}
}

// GetTask fetches a task status resource by its locator.
func (c *Client) GetTask(ctx context.Context, locator string) (TaskPayload, error) {
	var payload TaskPayload
	if _, err := c.call(ctx, http.MethodGet, locator, nil, nil, &payload, http.StatusOK); err != nil {
		return nil, err
	}
	return payload, nil
}

var errTaskPending = errors.New("task still pending")

// PollTask fetches the task at a fixed interval until it reaches a terminal
// state or the deadline elapses. Deadline expiry is not an error by itself:
// the last observed payload is returned and the caller decides fatality from
// its status. A fetch failure aborts the loop.
func (c *Client) PollTask(ctx context.Context, locator string, opts PollOptions) (TaskPayload, error) {
	opts.applyDefaults()

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	log := c.log.With("task", locator)

	var last TaskPayload
	operation := func() error {
		payload, err := c.GetTask(pollCtx, locator)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = payload
		if payload.Terminal() {
			log.Debug("task reached terminal state", "status", payload.Status())
			return nil
		}
		log.Debug("task still pending", "status", payload.Status())
		return errTaskPending
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.NewConstantBackOff(opts.Interval), pollCtx))
	if err != nil {
		if errors.Is(err, errTaskPending) || errors.Is(err, context.DeadlineExceeded) {
			// Deadline elapsed with the task still pending.
			log.Warn("polling deadline elapsed before terminal state",
				"timeout", opts.Timeout, "last_status", last.Status())
			return last, nil
		}
		return nil, fmt.Errorf("failed to poll task %s: %w", locator, err)
	}
	return last, nil
}
