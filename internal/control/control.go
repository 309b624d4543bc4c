// Package control exposes a local command endpoint for a running daemon:
// a named pipe on Windows, a unix socket elsewhere. Clients send one
// JSON request per line and read one JSON response per line.
//
// The server never touches the engine. Every request is forwarded over a
// channel to the tick loop, which executes it between ticks and sends the
// reply back; the engine stays single-goroutine.
package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"time"
)

// ///////////////////////////////////////////////
// Protocol
// ///////////////////////////////////////////////

// Request is one command from a control client.
type Request struct {
	// Command is one of: status, pause, resume, toggle, reset, trend,
	// logs, exit.
	Command string `json:"command"`
	// Lines bounds the output of the logs command. Zero means the default.
	Lines int `json:"lines,omitempty"`
}

// Response is the daemon's reply to one request.
type Response struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message pairs a request with its reply channel. The tick loop sends
// exactly one response and the server relays it to the client.
type Message struct {
	Req   Request
	Reply chan Response
}

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// replyTimeout bounds how long a connection waits for the tick loop. A
// wedged loop should fail the client, not pile up goroutines.
const replyTimeout = 5 * time.Second

// Server accepts control connections and forwards their requests.
type Server struct {
	ln   net.Listener
	msgs chan Message
	done chan struct{}
}

// Listen opens the control endpoint at name and starts accepting.
func Listen(name string) (*Server, error) {
	ln, err := listen(name)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:   ln,
		msgs: make(chan Message),
		done: make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Messages is the stream the tick loop selects on.
func (s *Server) Messages() <-chan Message { return s.msgs }

// Close stops accepting and releases the endpoint.
func (s *Server) Close() {
	close(s.done)
	s.ln.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("control accept failed", "error", err)
			continue
		}
		go s.serve(conn)
	}
}

// serve handles one connection, one request per line, until the client
// hangs up or the daemon shuts down.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(Response{Error: "malformed request: " + err.Error()})
			continue
		}
		resp := s.dispatch(req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	msg := Message{Req: req, Reply: make(chan Response, 1)}
	select {
	case s.msgs <- msg:
	case <-s.done:
		return Response{Error: "daemon shutting down"}
	case <-time.After(replyTimeout):
		return Response{Error: "daemon busy"}
	}
	select {
	case resp := <-msg.Reply:
		return resp
	case <-s.done:
		return Response{Error: "daemon shutting down"}
	case <-time.After(replyTimeout):
		return Response{Error: "daemon busy"}
	}
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Send connects to the endpoint at name, issues one request, and returns
// the response. Used by the command-line client mode.
func Send(name string, req Request, timeout time.Duration) (Response, error) {
	conn, err := dial(name, timeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
