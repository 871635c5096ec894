// Package proxy implements spec.md §4.I: the per-connection state machine
// that pairs a client socket with a backend socket, routes the text of every
// simple-protocol Query packet through package validate (query text carried
// in extended-protocol Parse packets is forwarded unchecked), and
// substitutes the fixed synthetic
// ErrorResponse+ReadyForQuery sequence for any query classified malicious
// instead of ever letting its bytes reach the backend.
//
// Grounded on original_source/src/proxy.rs's Proxy/IOEvent/ConnectionState
// and the per-connection struct shape of the teacher's
// proxy/postgres/conn.go (two sessions, a target address, client/backend
// socket ownership) — adapted from the teacher's goroutine-per-direction
// blocking-I/O model to the single-call-per-readiness-event nonblocking
// model spec.md §4.J and §5 require (see internal/reactor, which drives
// ProcessIncoming/ProcessOutgoing from epoll readiness).
package proxy

import (
	"errors"
	"fmt"

	"github.com/mickamy/sqlfortify/internal/keypool"
	"github.com/mickamy/sqlfortify/internal/session"
	"github.com/mickamy/sqlfortify/internal/validate"
)

// Conn is a nonblocking socket half that also supports independently
// shutting down its write or read direction, needed for spec.md §4.I's
// half-close propagation.
type Conn interface {
	session.Conn
	CloseWrite() error
	CloseRead() error
}

// Dialer attempts one nonblocking step of connecting the backend socket. It
// returns (true, nil) once connected, (false, nil) while still in
// progress (the caller should retry on the next writable event), or an
// error if the connection attempt failed outright.
type Dialer func() (connected bool, err error)

// IOEvent enumerates which readiness conditions a socket still needs,
// mirroring original_source/src/proxy.rs's IOEvent bitmask (None/Read/
// Write/ReadWrite).
type IOEvent int

const (
	EventNone IOEvent = 0
	EventRead IOEvent = 1 << iota
	EventWrite
)

// Merge implements the OR-merge original_source/src/proxy.rs performs on
// IOEvent via its BitOr impl: once both Read and Write have been requested
// for a socket in one pass, further merges are idempotent.
func (e IOEvent) Merge(other IOEvent) IOEvent { return e | other }

// Phase mirrors spec.md §3's ConnectionState.
type Phase int

const (
	PhaseHandshake Phase = iota
	PhaseConnected
)

// pendingQuery tracks one in-flight simple-query cycle awaiting its
// backend result, or a synthetic-error stand-in for a suppressed query.
type pendingQuery struct {
	synthetic bool
	query     string
}

// Proxy owns one connection's client- and backend-facing sessions and
// drives forward progress one packet at a time per ProcessIncoming/
// ProcessOutgoing call, per spec.md §4.I and §4.J's fairness requirement.
type Proxy struct {
	ClientKey  keypool.Key
	BackendKey keypool.Key

	client  Conn
	backend Conn

	clientSession  *session.Session
	backendSession *session.Session

	validator *validate.Validator
	dial      Dialer

	phase Phase

	clientReadClosed   bool
	clientWriteClosed  bool
	backendReadClosed  bool
	backendWriteClosed bool

	pending []pendingQuery

	// pendingForwardRaw holds a client request's raw bytes that have been
	// read but not yet fully written to the backend, so a partial write can
	// resume without re-reading the request.
	pendingForwardRaw []byte

	// pendingRespRaw/pendingRespMeta hold a backend response that has been
	// read but not yet fully forwarded to the client.
	pendingRespRaw  []byte
	pendingRespMeta session.Meta

	pendingSynthetic []byte // the in-flight synthetic error+ReadyForQuery blob
}

// New constructs a Proxy for one accepted connection. client and backend
// are both already nonblocking; backend may still be mid-connect, in which
// case dial drives the handshake to completion.
func New(clientKey, backendKey keypool.Key, client, backend Conn, dial Dialer, validator *validate.Validator) *Proxy {
	return &Proxy{
		ClientKey:      clientKey,
		BackendKey:     backendKey,
		client:         client,
		backend:        backend,
		clientSession:  session.New(),
		backendSession: session.New(),
		validator:      validator,
		dial:           dial,
		phase:          PhaseHandshake,
	}
}

// ErrConnectionAborted signals the proxy's resources should be reclaimed:
// both sockets closed, both keys returned to the pool.
var ErrConnectionAborted = errors.New("proxy: connection aborted")

// ProcessIncoming drives client→backend progress one step, per spec.md
// §4.I's incoming pipeline: read a client request, validate any query it
// carries, and forward it (or substitute suppression) to the backend.
func (p *Proxy) ProcessIncoming() (clientEvent, backendEvent IOEvent, err error) {
	if p.phase == PhaseHandshake {
		ev, err := p.stepConnect()
		if err != nil {
			return EventNone, EventNone, err
		}
		backendEvent = backendEvent.Merge(ev)
		if p.phase == PhaseHandshake {
			return clientEvent, backendEvent, nil
		}
	}

	ev, err := p.processClientPacket()
	if err != nil {
		if errors.Is(err, session.ErrWouldBlock) {
			return clientEvent.Merge(EventRead), backendEvent, nil
		}
		if errors.Is(err, session.ErrAborted) {
			return p.handleClientReadClosed()
		}
		return EventNone, EventNone, err
	}
	clientEvent = clientEvent.Merge(ev)

	ev, err = p.flushForward()
	if err != nil {
		if errors.Is(err, session.ErrWouldBlock) {
			return clientEvent, backendEvent.Merge(EventWrite), nil
		}
		if errors.Is(err, session.ErrAborted) {
			p.backendWriteClosed = true
			p.clientReadClosed = true
			_ = p.client.CloseRead()
			return clientEvent, backendEvent, nil
		}
		return EventNone, EventNone, err
	}
	backendEvent = backendEvent.Merge(ev)

	return clientEvent, backendEvent, nil
}

// ProcessOutgoing drives backend→client progress one step, per spec.md
// §4.I's outgoing pipeline: forward backend responses, interleaving any
// synthetic error the incoming pipeline queued, and feed the result back to
// the validator once a query's ReadyForQuery arrives.
func (p *Proxy) ProcessOutgoing() (clientEvent, backendEvent IOEvent, err error) {
	if p.phase == PhaseHandshake {
		return EventNone, EventNone, nil // stepConnect is driven from ProcessIncoming
	}

	if p.incomingDrained() && len(p.pending) == 0 && p.pendingRespRaw == nil && p.pendingSynthetic == nil {
		if !p.clientWriteClosed {
			_ = p.client.CloseWrite()
			p.clientWriteClosed = true
		}
		return EventNone, EventNone, ErrConnectionAborted
	}

	if len(p.pending) > 0 && p.pending[0].synthetic {
		ev, err := p.flushSynthetic()
		if err != nil {
			if errors.Is(err, session.ErrWouldBlock) {
				return EventWrite, EventNone, nil
			}
			return EventNone, EventNone, err
		}
		return ev, EventNone, nil
	}

	if p.backendReadClosed {
		return EventNone, EventNone, nil
	}

	ev, bev, err := p.processBackendPacket()
	if err != nil {
		if errors.Is(err, session.ErrWouldBlock) {
			return ev, bev.Merge(EventRead), nil
		}
		if errors.Is(err, session.ErrAborted) {
			p.backendReadClosed = true
			return EventNone, EventNone, nil
		}
		return EventNone, EventNone, err
	}
	return ev, bev, nil
}

func (p *Proxy) incomingDrained() bool {
	return p.clientReadClosed && p.backendWriteClosed
}

func (p *Proxy) handleClientReadClosed() (IOEvent, IOEvent, error) {
	p.clientReadClosed = true
	if !p.backendWriteClosed && p.pendingForwardRaw == nil {
		if err := p.backend.CloseWrite(); err != nil {
			return EventNone, EventNone, fmt.Errorf("proxy: shutdown backend write: %w", err)
		}
		p.backendWriteClosed = true
	}
	return EventNone, EventNone, nil
}

func (p *Proxy) stepConnect() (IOEvent, error) {
	connected, err := p.dial()
	if err != nil {
		return EventNone, fmt.Errorf("proxy: connect backend: %w", err)
	}
	if connected {
		p.phase = PhaseConnected
		return EventNone, nil
	}
	return EventRead.Merge(EventWrite), nil
}

// processClientPacket reads one client request, validates any query it
// carries, and stages it for forwarding (flushForward) or suppression.
func (p *Proxy) processClientPacket() (IOEvent, error) {
	if p.clientReadClosed {
		return EventNone, nil
	}
	if p.pendingForwardRaw != nil {
		return EventNone, nil // still flushing a previously-read request
	}

	_, meta, raw, err := p.clientSession.ReceiveRequest(p.client)
	if err != nil {
		return EventNone, err
	}

	if meta.SSLRequested || meta.GSSEncRequested {
		if werr := p.clientSession.WriteRaw(p.client, []byte{session.DowngradeResponse}); werr != nil {
			return EventNone, fmt.Errorf("proxy: downgrade response: %w", werr)
		}
		p.clientSession.ResetToStartup()
		return EventNone, nil
	}

	if meta.Query == "" {
		p.pendingForwardRaw = raw
		return EventNone, nil
	}

	if cerr := p.validator.CheckQuery(meta.Query); cerr != nil {
		p.pending = append(p.pending, pendingQuery{synthetic: true, query: meta.Query})
		return EventNone, nil
	}

	p.pending = append(p.pending, pendingQuery{query: meta.Query})
	p.pendingForwardRaw = raw
	return EventNone, nil
}

// flushForward writes any staged client bytes to the backend, resumably.
func (p *Proxy) flushForward() (IOEvent, error) {
	if p.pendingForwardRaw == nil {
		return EventNone, nil
	}
	if err := p.backendSession.WriteRaw(p.backend, p.pendingForwardRaw); err != nil {
		return EventNone, err
	}
	p.pendingForwardRaw = nil
	return EventNone, nil
}

// flushSynthetic writes the fixed synthetic error+ReadyForQuery sequence to
// the client in place of a suppressed malicious query's real response.
func (p *Proxy) flushSynthetic() (IOEvent, error) {
	if p.pendingSynthetic == nil {
		p.pendingSynthetic = session.SyntheticError
	}
	if err := p.clientSession.WriteRaw(p.client, p.pendingSynthetic); err != nil {
		return EventNone, err
	}
	p.pendingSynthetic = nil
	p.pending = p.pending[1:]
	return EventNone, nil
}

// processBackendPacket reads one backend response, forwards it to the
// client, and resolves the front pending query once its ReadyForQuery
// arrives.
func (p *Proxy) processBackendPacket() (clientEvent, backendEvent IOEvent, err error) {
	if p.pendingRespRaw == nil {
		_, meta, raw, rerr := p.backendSession.ReceiveResponse(p.backend)
		if rerr != nil {
			return EventNone, EventNone, rerr
		}
		p.pendingRespRaw = raw
		p.pendingRespMeta = meta
	}

	if werr := p.clientSession.WriteRaw(p.client, p.pendingRespRaw); werr != nil {
		if errors.Is(werr, session.ErrWouldBlock) {
			return EventWrite, EventNone, nil
		}
		return EventNone, EventNone, werr
	}

	meta := p.pendingRespMeta
	p.pendingRespRaw = nil
	p.pendingRespMeta = session.Meta{}

	if meta.ResultKnown && len(p.pending) > 0 && !p.pending[0].synthetic {
		front := p.pending[0]
		p.pending = p.pending[1:]
		if meta.Success {
			p.validator.UpdateGoodQuery(front.query)
		} else {
			p.validator.UpdateBadQuery(front.query)
		}
	}

	return EventNone, EventNone, nil
}
