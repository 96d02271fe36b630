package netplay

import (
	"context"
	"time"
)

// Authenticate runs the handshake on an open channel: it sends the bearer
// token and blocks until the server accepts or rejects it, or the configured
// AuthTimeout elapses. On success the session is populated and the state
// machine moves to StateAuthenticated; the server-assigned user id is
// returned.
//
// The response waiter is deregistered on every exit path, so a response
// arriving after a timeout is dropped instead of resolving a later call.
func (c *Client) Authenticate(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	open := c.state == StateConnected || c.state == StateAuthenticated
	c.mu.Unlock()
	if !open {
		return "", NewError(ErrorNotConnected, "authenticate requires an open connection")
	}

	waiter, err := c.dispatcher.registerAuthWaiter()
	if err != nil {
		return "", err
	}
	defer c.dispatcher.clearAuthWaiter(waiter)

	if err := c.send(ctx, ClientMessage{Event: outAuthenticate, Data: authRequest{Token: token}}); err != nil {
		return "", err
	}

	var timeout <-chan time.Time
	if c.cfg.AuthTimeout > 0 {
		timer := time.NewTimer(c.cfg.AuthTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-waiter:
		return c.finishAuth(token, res)
	case <-timeout:
		// No state transition: the channel stays connected and the caller
		// may retry, but the failure must reach lastError immediately.
		c.Tracker.AddError(ErrorRecord{
			Type:      ErrTypeAuthentication,
			Message:   "authenticate timed out",
			Timestamp: time.Now(),
			Critical:  true,
		})
		return "", NewError(ErrorTimeout, "authenticate timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) finishAuth(token string, res authResult) (string, error) {
	if res.err != nil {
		return "", WrapError(ErrorConnection, "connection lost during authenticate", res.err)
	}
	if !res.ok {
		c.Tracker.AddError(ErrorRecord{
			Type:      ErrTypeAuthentication,
			Message:   res.reason,
			Timestamp: time.Now(),
			Critical:  true,
		})
		return "", NewError(ErrorAuthRejected, res.reason)
	}

	c.mu.Lock()
	if c.state != StateConnected && c.state != StateAuthenticated {
		// The channel dropped between the response and now; the session must
		// not outlive the connection.
		c.mu.Unlock()
		return "", NewError(ErrorNotConnected, "connection closed during authenticate")
	}
	c.session = Session{Token: token, UserID: res.userID, Authenticated: true}
	notify := c.transitionLocked(StateAuthenticated, nil)
	c.mu.Unlock()
	notify()

	c.logger.Infof("authenticated as %s", res.userID)
	return res.userID, nil
}
