// Package session implements spec.md §4.E: the per-direction protocol
// state machine that sits between raw socket bytes and package pgwire's
// typed packets. A Session tracks which protocol phase its side of the
// connection is in, frames one packet at a time off of a nonblocking Conn
// with resumable partial reads/writes, and derives the per-packet metadata
// (query text, success/failure, SSL/GSSENC downgrade signals) that package
// proxy and package validate act on.
//
// Grounded on original_source/src/base_session.rs (read_packet/
// write_packet's partial-progress bookkeeping) and
// original_source/src/postgres_session.rs (the phase transitions and
// per-message metadata extraction), adapted to Go's explicit error values
// in place of Rust's io::ErrorKind::WouldBlock.
package session

import (
	"errors"
	"fmt"

	"github.com/mickamy/sqlfortify/internal/pgwire"
)

// Phase enumerates the protocol phases of spec.md §4.E's transition table.
type Phase int

const (
	PhaseStartup Phase = iota
	PhaseSslRequested
	PhaseGssRequested
	PhaseNormal
	PhaseExtendedQuery
	PhaseCopyIn
	PhaseExtendedCopyIn
)

func (p Phase) String() string {
	switch p {
	case PhaseStartup:
		return "Startup"
	case PhaseSslRequested:
		return "SslRequested"
	case PhaseGssRequested:
		return "GssRequested"
	case PhaseNormal:
		return "Normal"
	case PhaseExtendedQuery:
		return "ExtendedQuery"
	case PhaseCopyIn:
		return "CopyIn"
	case PhaseExtendedCopyIn:
		return "ExtendedCopyIn"
	default:
		return "Invalid"
	}
}

// ErrWouldBlock is returned by a Conn (and propagated unchanged by Session)
// when no further bytes can be read or written without blocking. The
// reactor is expected to reschedule the same call once the socket becomes
// ready again.
var ErrWouldBlock = errors.New("session: would block")

// ErrAborted reports the peer has closed its read or write half in a way
// that ends this packet's framing permanently (as opposed to ErrWouldBlock,
// which is transient).
var ErrAborted = errors.New("session: connection aborted")

// ErrBrokenResumption is returned when a caller changes the shape of its
// resumption request (e.g. asking for a standard-framed packet mid-way
// through resuming a startup-framed one) — spec.md §4.E calls this
// "violating resumption" and treats it as fatal InvalidData.
var ErrBrokenResumption = errors.New("session: broken read/write resumption")

// Conn is the nonblocking byte source/sink a Session reads and writes
// through. internal/reactor's fd wrapper and this package's tests both
// satisfy it.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Meta is the per-packet metadata derived while receiving a request or
// response, per spec.md §4.E.
type Meta struct {
	Username           string
	Database           string
	Query              string
	IsRequest          bool
	ResultKnown        bool
	Success            bool
	SSLRequested       bool
	GSSEncRequested    bool
	UnsupportedVersion bool
}

// readState tracks resumable progress framing one inbound packet, mirroring
// base_session.rs's read_idx/read_size bookkeeping.
type readState struct {
	standard bool // false while framing startup-format packets
	buf      []byte
	fill     int
	declared int // 0 until the length header has been fully read
}

// writeState tracks resumable progress writing one outbound blob of bytes.
type writeState struct {
	buf []byte
	off int
}

// Session is one direction's protocol state: phase, resumable I/O buffers,
// and the "saw a request failure since the last ReadyForQuery" flag spec.md
// §4.E uses to derive a response's success/failure.
type Session struct {
	phase Phase

	rd readState
	wr writeState

	requestFailure bool
	username       string
	database       string
}

// New returns a Session in PhaseStartup.
func New() *Session {
	return &Session{phase: PhaseStartup}
}

// Phase reports the session's current protocol phase.
func (s *Session) Phase() Phase { return s.phase }

// startupHeaderLen is the length of a startup packet's length-only header.
const startupHeaderLen = 4

// standardHeaderLen is the length of a standard packet's id+length header.
const standardHeaderLen = 5

// readPacket frames exactly one packet off c, growing rd.buf by doubling up
// to the declared packet length, and returns the complete raw bytes once
// fully read. A partial read returns (nil, ErrWouldBlock); the same Session
// must be called again (with the same standard-ness) to resume, per spec.md
// §4.E's resumable-read requirement.
func (s *Session) readPacket(c Conn, standard bool) ([]byte, error) {
	if s.rd.declared != 0 && s.rd.standard != standard {
		return nil, ErrBrokenResumption
	}
	s.rd.standard = standard

	headerLen := startupHeaderLen
	if standard {
		headerLen = standardHeaderLen
	}

	if s.rd.buf == nil {
		s.rd.buf = make([]byte, headerLen)
	}

	// Read (or finish reading) the length header.
	if s.rd.declared == 0 {
		n, err := readFully(c, s.rd.buf[s.rd.fill:headerLen])
		s.rd.fill += n
		if err != nil {
			return nil, err
		}
		if s.rd.fill < headerLen {
			return nil, ErrWouldBlock
		}

		var total int
		var lenErr error
		if standard {
			_, total, lenErr = pgwire.ReadStandardPacketLen(s.rd.buf[:headerLen])
		} else {
			total, lenErr = pgwire.ReadStartupPacketLen(s.rd.buf[:headerLen])
		}
		if lenErr != nil {
			return nil, fmt.Errorf("session: frame packet: %w", lenErr)
		}
		if total < headerLen {
			return nil, fmt.Errorf("session: frame packet: %w", pgwire.ErrNegativePacketLength)
		}

		s.rd.declared = total
		if cap(s.rd.buf) < total {
			grown := make([]byte, headerLen, growTo(cap(s.rd.buf), total))
			copy(grown, s.rd.buf[:headerLen])
			s.rd.buf = grown
		}
		s.rd.buf = s.rd.buf[:total]
	}

	n, err := readFully(c, s.rd.buf[s.rd.fill:s.rd.declared])
	s.rd.fill += n
	if err != nil {
		return nil, err
	}
	if s.rd.fill < s.rd.declared {
		return nil, ErrWouldBlock
	}

	out := s.rd.buf
	s.rd = readState{}
	return out, nil
}

// growTo doubles cur until it reaches at least target.
func growTo(cur, target int) int {
	if cur == 0 {
		cur = 64
	}
	for cur < target {
		cur *= 2
	}
	return cur
}

// readFully reads into p until it is full or the Conn returns an error,
// including ErrWouldBlock, translating io.EOF into ErrAborted.
func readFully(c Conn, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := c.Read(p[total:])
		total += n
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return total, ErrWouldBlock
			}
			return total, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		if n == 0 {
			return total, ErrWouldBlock
		}
	}
	return total, nil
}

// writeFully writes p[off:] to c, returning the new offset. A partial write
// returns (newOff, ErrWouldBlock) so the caller can retry with the same
// buffer, per spec.md §4.E's resumable-write requirement.
func writeFully(c Conn, p []byte, off int) (int, error) {
	for off < len(p) {
		n, err := c.Write(p[off:])
		off += n
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return off, ErrWouldBlock
			}
			return off, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		if n == 0 {
			return off, ErrWouldBlock
		}
	}
	return off, nil
}

// WriteRaw writes raw bytes to c with resumable partial-write semantics.
// Callers must pass the identical slice on every resuming call until it
// returns nil.
func (s *Session) WriteRaw(c Conn, data []byte) error {
	if s.wr.buf != nil && !sameBacking(s.wr.buf, data) {
		return ErrBrokenResumption
	}
	if s.wr.buf == nil {
		s.wr.buf = data
	}
	off, err := writeFully(c, s.wr.buf, s.wr.off)
	s.wr.off = off
	if err != nil {
		if !errors.Is(err, ErrWouldBlock) {
			s.wr = writeState{}
		}
		return err
	}
	s.wr = writeState{}
	return nil
}

func sameBacking(a, b []byte) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

// ReceiveRequest frames and decodes one frontend (client-to-server) packet,
// advancing the session's phase per spec.md §4.E's transition table and
// populating Meta. It returns (nil, Meta{}, nil, ErrWouldBlock) on a partial read
// that must be resumed by calling ReceiveRequest again.
func (s *Session) ReceiveRequest(c Conn) (*pgwire.Request, Meta, []byte, error) {
	standard := s.phase != PhaseStartup
	raw, err := s.readPacket(c, standard)
	if err != nil {
		return nil, Meta{}, nil, err
	}

	if !standard {
		req, perr := pgwire.ParseStartupRequest(raw)
		if perr != nil {
			return nil, Meta{}, raw, fmt.Errorf("session: parse startup request: %w", perr)
		}
		meta := s.applyStartupRequest(req)
		return &req, meta, raw, nil
	}

	req, perr := pgwire.ParseRequest(raw)
	if perr != nil {
		return nil, Meta{}, raw, fmt.Errorf("session: parse request: %w", perr)
	}
	meta := s.applyStandardRequest(req)
	return &req, meta, raw, nil
}

func (s *Session) applyStartupRequest(req pgwire.Request) Meta {
	meta := Meta{IsRequest: true}
	switch req.Kind {
	case pgwire.ReqSSLRequest:
		s.phase = PhaseSslRequested
		meta.SSLRequested = true
	case pgwire.ReqGSSENCRequest:
		s.phase = PhaseGssRequested
		meta.GSSEncRequested = true
	case pgwire.ReqStartupMessage:
		s.phase = PhaseNormal
		s.username = req.User
		s.database = req.StartupParams["database"]
		if s.database == "" {
			s.database = s.username
		}
		meta.Username = s.username
		meta.Database = s.database
	case pgwire.ReqCancelRequest:
		// No phase change: CancelRequest carries no query and is forwarded
		// unmodified, per spec.md §7's supplemented-feature note.
	}
	return meta
}

func (s *Session) applyStandardRequest(req pgwire.Request) Meta {
	meta := Meta{Username: s.username, Database: s.database}

	switch req.Kind {
	case pgwire.ReqQuery:
		meta.IsRequest = true
		meta.Query = req.QueryText
		if s.phase == PhaseNormal {
			s.phase = PhaseExtendedQuery // simple query also awaits ReadyForQuery
		}
	case pgwire.ReqSync:
		meta.IsRequest = true
	case pgwire.ReqFunctionCall:
		meta.IsRequest = true
		if s.phase == PhaseNormal {
			s.phase = PhaseExtendedQuery
		}
	case pgwire.ReqParse, pgwire.ReqBind, pgwire.ReqExecute, pgwire.ReqDescribePortal,
		pgwire.ReqDescribePrepared, pgwire.ReqClosePortal, pgwire.ReqClosePrepared, pgwire.ReqFlush:
		if s.phase == PhaseNormal {
			s.phase = PhaseExtendedQuery
		}
	case pgwire.ReqCopyDone, pgwire.ReqCopyFail:
		switch s.phase {
		case PhaseCopyIn:
			s.phase = PhaseNormal
		case PhaseExtendedCopyIn:
			s.phase = PhaseExtendedQuery
		}
	}
	return meta
}

// ReceiveResponse frames and decodes one backend (server-to-client) packet,
// advancing phase and the request-failure flag per spec.md §4.E.
func (s *Session) ReceiveResponse(c Conn) (*pgwire.Response, Meta, []byte, error) {
	raw, err := s.readPacket(c, true)
	if err != nil {
		return nil, Meta{}, nil, err
	}

	resp, perr := pgwire.ParseResponse(raw)
	if perr != nil {
		return nil, Meta{}, raw, fmt.Errorf("session: parse response: %w", perr)
	}
	meta := s.applyResponse(resp)
	return &resp, meta, raw, nil
}

func (s *Session) applyResponse(resp pgwire.Response) Meta {
	meta := Meta{}

	switch resp.Kind {
	case pgwire.RespErrorResponse:
		s.requestFailure = true
	case pgwire.RespReadyForQuery:
		meta.ResultKnown = true
		meta.Success = !s.requestFailure
		s.requestFailure = false
		switch s.phase {
		case PhaseExtendedQuery:
			s.phase = PhaseNormal
		}
	case pgwire.RespCopyInResponse, pgwire.RespCopyBothResponse:
		switch s.phase {
		case PhaseNormal:
			s.phase = PhaseCopyIn
		case PhaseExtendedQuery:
			s.phase = PhaseExtendedCopyIn
		}
	}
	return meta
}

// ResetToStartup returns the session to PhaseStartup, used after an
// SSL/GSSENC downgrade response has been sent to the client per spec.md §6.
func (s *Session) ResetToStartup() {
	s.phase = PhaseStartup
}

// SyntheticError is the fixed ErrorResponse(SQLSTATE=42000)+ReadyForQuery
// byte sequence the proxy injects in place of a suppressed malicious query,
// per spec.md §6.
var SyntheticError = []byte{
	'E', 0x00, 0x00, 0x00, 0x3a,
	'S', 'E', 'R', 'R', 'O', 'R', 0x00,
	'C', '4', '2', '0', '0', '0', 0x00,
	'M',
	'M', 'a', 'l', 'f', 'o', 'r', 'm', 'e', 'd', ' ', 'i', 'n', 'p', 'u', 't', ' ', 'b', 'l', 'o', 'c', 'k', 'e', 'd', ' ', 'b', 'y', ' ', 'S', 'Q', 'L', 'F', 'o', 'r', 't', 'i', 'f', 'y', 0x00,
	0x00,
	'Z', 0x00, 0x00, 0x00, 0x05, 'I',
}

// DowngradeResponse is the single byte written back to a client that sent
// an SSLRequest or GSSENCRequest, per spec.md §6.
const DowngradeResponse = byte('N')
