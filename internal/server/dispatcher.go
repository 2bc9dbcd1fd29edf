package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CommandPrefix marks a message as an exchange command instead of chat text.
const CommandPrefix = "exchange"

// Dispatcher routes each inbound message either to the chat broadcast or
// to the exchange command handler.
type Dispatcher struct {
	hub      *Hub
	exchange *ExchangeHandler
}

// NewDispatcher creates a Dispatcher. exchange may be nil, in which case
// commands are answered with an error.
func NewDispatcher(hub *Hub, exchange *ExchangeHandler) *Dispatcher {
	return &Dispatcher{hub: hub, exchange: exchange}
}

// Dispatch handles one message from client.
func (d *Dispatcher) Dispatch(ctx context.Context, client *Client, message string) {
	if strings.HasPrefix(message, CommandPrefix) {
		d.handleCommand(ctx, client, message)
		return
	}

	d.hub.Broadcast(fmt.Sprintf("%s: %s", client.Name(), message))
}

// handleCommand answers the sender only. Failures, panics included, become
// an error reply and never close the connection.
func (d *Dispatcher) handleCommand(ctx context.Context, client *Client, command string) {
	reply, err := d.runCommand(ctx, command)
	if err != nil {
		log.Warnf("Exchange command %q from %s failed: %v", command, client.Addr(), err)
		reply = "Error processing command: " + err.Error()
	}

	if !d.hub.SendTo(client, reply) {
		log.Warnf("Could not deliver exchange reply to %s", client.Addr())
	}
}

func (d *Dispatcher) runCommand(ctx context.Context, command string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if d.exchange == nil {
		return "", errors.New("exchange command is not available")
	}

	log.Printf("Running exchange command %q", command)
	return d.exchange.Execute(ctx, command)
}
