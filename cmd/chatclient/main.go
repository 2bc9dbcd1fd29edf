// Command chatclient is an interactive terminal client for the chat server.
// Every line typed is sent as one message; incoming messages are printed as
// they arrive. "exchange [days]" asks the server for recent rates.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/ratechat/internal/logging"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8765", "Chat server WebSocket URL")
	flag.Parse()

	if err := logging.Setup(os.Getenv("LOG_LEVEL")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("Unable to connect to %s: %v", *addr, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(conn, os.Stdout)
	}()

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				closeGracefully(conn, done)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				log.Errorf("Send failed: %v", err)
				return
			}
		case <-done:
			return
		case <-sigChan:
			closeGracefully(conn, done)
			return
		}
	}
}

func receive(conn *websocket.Conn, out io.Writer) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Warnf("Connection closed: %v", err)
			}
			return
		}
		fmt.Fprintln(out, string(message))
	}
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines <- line
	}
}

func closeGracefully(conn *websocket.Conn, done <-chan struct{}) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
