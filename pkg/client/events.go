package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// CloseMessageCode is the normal closure code sent on Close.
	CloseMessageCode = 1000
	// NotificationBuffer is how many change events may queue up unread.
	NotificationBuffer = 64

	writeWait = 5 * time.Second
)

// EventStream delivers the change events the server pushes for the
// caller's workspaces.
type EventStream struct {
	conn     *gorilla.Conn
	connLock sync.Mutex
	log      zerolog.Logger

	notifications chan store.Change
	done          chan struct{}
	closeOnce     sync.Once
	err           error
}

// Events opens the change event websocket.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	token := c.AuthToken()
	if token == "" {
		return nil, constants.ErrUnauthenticated
	}

	endpoint := c.baseURL + api.EventsPath()
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}

	header := http.Header{}
	header.Set(constants.AuthorizationHeader, constants.BearerPrefix+token)

	dialer := *gorilla.DefaultDialer
	dialer.HandshakeTimeout = DefaultTimeout
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, statusError(resp)
		}
		return nil, &NetworkError{Op: "GET " + api.EventsPath(), Cause: err}
	}

	es := &EventStream{
		conn:          conn,
		log:           c.log,
		notifications: make(chan store.Change, NotificationBuffer),
		done:          make(chan struct{}),
	}
	go es.read()
	return es, nil
}

// Notifications is closed when the stream ends; Err then tells why.
func (es *EventStream) Notifications() <-chan store.Change {
	return es.notifications
}

// Err returns the error that ended the stream, or nil after Close.
func (es *EventStream) Err() error {
	<-es.done
	return es.err
}

func (es *EventStream) read() {
	defer close(es.done)
	defer close(es.notifications)

	for {
		var change store.Change
		if err := es.conn.ReadJSON(&change); err != nil {
			if !gorilla.IsCloseError(err, CloseMessageCode) && !errors.Is(err, net.ErrClosed) {
				es.err = fmt.Errorf("event stream: %w", err)
			}
			return
		}
		select {
		case es.notifications <- change:
		default:
			es.log.Warn().Str("collection", string(change.Collection)).Msg("event stream consumer is behind, dropping change")
		}
	}
}

// Close ends the stream and waits for the reader to stop.
func (es *EventStream) Close() error {
	var err error
	es.closeOnce.Do(func() {
		es.connLock.Lock()
		_ = es.conn.WriteControl(gorilla.CloseMessage,
			gorilla.FormatCloseMessage(CloseMessageCode, ""),
			time.Now().Add(writeWait))
		es.connLock.Unlock()
		err = es.conn.Close()
		<-es.done
	})
	return err
}
