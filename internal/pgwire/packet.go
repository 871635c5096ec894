// Package pgwire implements framing and typed decoding for the PostgreSQL
// wire protocol v3, covering both the startup and standard packet framings
// and every request/response variant spec.md §4.D names.
//
// Ported from original_source/src/postgres_packet.rs: the same framing
// rules, the same packet-identifier switch, and the same strict
// exactly-the-declared-length consumption (via internal/wire's Finalize),
// re-expressed as Go structs with a Kind discriminant in place of Rust enum
// variants — the shape this codebase already uses for internal/token.Token.
package pgwire

import (
	"errors"
	"fmt"

	"github.com/mickamy/sqlfortify/internal/wire"
)

// WireVersion identifies a negotiated protocol major version.
type WireVersion int

const WireVersion3 WireVersion = 0

// TransactionStatus is the single-byte status carried by ReadyForQuery.
type TransactionStatus byte

const (
	TxIdle        TransactionStatus = 'I'
	TxInProgress  TransactionStatus = 'T'
	TxFailed      TransactionStatus = 'E'
)

// NullableBytes represents a length-prefixed value that may be SQL NULL
// (encoded on the wire as a -1 length).
type NullableBytes struct {
	Null bool
	Data []byte
}

// RowField describes one column in a RowDescription response.
type RowField struct {
	Name         string
	TableOID     int32
	ColumnAttr   int16
	DataTypeOID  int32
	DataTypeSize int16
	TypeModifier int32
	IsBinary     bool
}

var (
	ErrNegativePacketLength = errors.New("packet length field was a negative value")
	ErrPacketLengthTooLarge = errors.New("packet length field too large")
	ErrStartupLengthMismatch = errors.New("startup packet length field mismatch (internal error)")
	ErrStartupExtraData      = errors.New("startup packet contained more data than expected")
	ErrUnrecognizedProtocol  = errors.New("startup packet contained unrecognized protocol version")
	ErrStartupMissingUser    = errors.New("startup packet missing required 'user' parameter")
	ErrRequestLengthMismatch  = errors.New("request packet length field mismatch (internal error)")
	ErrResponseLengthMismatch = errors.New("response packet length field mismatch (internal error)")
	ErrUnrecognizedIdentifier = errors.New("packet contained unrecognized packet identifier")
	ErrInvalidCloseType       = errors.New("packet contained invalid Close type parameter")
	ErrInvalidDescribeType    = errors.New("packet contained invalid Describe type parameter")
	ErrInvalidBoolField       = errors.New("packet contains invalid value for boolean format code field")
	ErrInvalidTxStatus        = errors.New("packet contained unrecognized transaction status indicator")
	ErrUnrecognizedAuthKind   = errors.New("packet contained unrecognized authentication sub-kind")
)

// ReadStartupPacketLen reads the leading 4-byte length field of a startup
// packet without consuming the rest of the buffer.
func ReadStartupPacketLen(buffer []byte) (int, error) {
	r := wire.NewReader(buffer)
	length, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if length < 0 {
		return 0, ErrNegativePacketLength
	}
	return int(length), nil
}

// ReadStandardPacketLen reads a standard packet's 1-byte identifier and
// 4-byte length field, returning the total packet length including the
// identifier byte.
func ReadStandardPacketLen(buffer []byte) (byte, int, error) {
	r := wire.NewReader(buffer)
	identifier, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	length, err := r.ReadInt32()
	if err != nil {
		return 0, 0, err
	}
	if length < 0 {
		return 0, 0, ErrNegativePacketLength
	}
	total := int(length) + 1
	if total < int(length) {
		return 0, 0, ErrPacketLengthTooLarge
	}
	return identifier, total, nil
}

// ReqKind discriminates Request variants.
type ReqKind int

const (
	ReqUnknown ReqKind = iota
	ReqAuthDataResponse
	ReqBind
	ReqCancelRequest
	ReqClosePortal
	ReqClosePrepared
	ReqCopyData
	ReqCopyDone
	ReqCopyFail
	ReqDescribePortal
	ReqDescribePrepared
	ReqExecute
	ReqFlush
	ReqFunctionCall
	ReqGSSENCRequest
	ReqParse
	ReqQuery
	ReqSSLRequest
	ReqStartupMessage
	ReqSync
	ReqTerminate
)

// Request is a single PostgreSQL frontend (client-to-server) message.
type Request struct {
	Kind ReqKind

	Bytes []byte // AuthDataResponse, CopyData

	Name string // ClosePortal/ClosePrepared/DescribePortal/DescribePrepared

	QueryText string // Query

	ErrorMessage string // CopyFail

	Portal            string // Bind destination portal, Execute portal
	PreparedStmt      string // Bind source prepared statement
	ParamFormatCodes  []bool
	Params            []NullableBytes
	ResultFormatCodes []bool

	MaxRows int32 // Execute

	ProcessID int32 // CancelRequest
	SecretKey int32 // CancelRequest

	ObjectID             int32 // FunctionCall
	ArgFormatCodes       []bool
	Arguments            []NullableBytes
	ResultFormatIsBinary bool

	ParseName  string // Parse prepared statement name
	ParseQuery string // Parse query text
	ParamOIDs  []int32

	ProtocolVersion WireVersion
	User            string
	StartupParams   map[string]string
}

// ParseStartupRequest decodes a startup-phase packet: StartupMessage,
// CancelRequest, SSLRequest, or GSSENCRequest.
func ParseStartupRequest(buffer []byte) (Request, error) {
	packetLength, err := ReadStartupPacketLen(buffer)
	if err != nil {
		return Request{}, err
	}
	if len(buffer) != packetLength {
		return Request{}, ErrStartupLengthMismatch
	}

	r := wire.NewReader(buffer)
	r.AdvanceUpTo(4)

	protocolField, err := r.ReadInt32()
	if err != nil {
		return Request{}, err
	}

	if (protocolField == 80877103 || protocolField == 80877104) && !r.Empty() {
		return Request{}, ErrStartupExtraData
	}

	switch protocolField {
	case 196608:
		// fall through to parameter parsing below
	case 80877102:
		pid, err := r.ReadInt32()
		if err != nil {
			return Request{}, err
		}
		key, err := r.ReadInt32AndFinalize()
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqCancelRequest, ProcessID: pid, SecretKey: key}, nil
	case 80877103:
		return Request{Kind: ReqSSLRequest}, nil
	case 80877104:
		return Request{Kind: ReqGSSENCRequest}, nil
	default:
		return Request{}, ErrUnrecognizedProtocol
	}

	params, err := r.ReadUTF8StringStringMap()
	if err != nil {
		return Request{}, err
	}
	user, ok := params["user"]
	if !ok {
		return Request{}, ErrStartupMissingUser
	}
	return Request{
		Kind:            ReqStartupMessage,
		ProtocolVersion: WireVersion3,
		User:            user,
		StartupParams:   params,
	}, nil
}

// ParseRequest decodes a standard (post-startup) frontend packet.
func ParseRequest(buffer []byte) (Request, error) {
	identifier, packetLength, err := ReadStandardPacketLen(buffer)
	if err != nil {
		return Request{}, err
	}
	if len(buffer) != packetLength {
		return Request{}, ErrRequestLengthMismatch
	}

	r := wire.NewReader(buffer)
	r.AdvanceUpTo(5)

	switch identifier {
	case 'c', 'H', 'S', 'X':
		if err := r.Finalize(); err != nil {
			return Request{}, err
		}
	}

	switch identifier {
	case 'B':
		return parseBindRequest(r)
	case 'C':
		kind, err := r.ReadByte()
		if err != nil {
			return Request{}, err
		}
		switch kind {
		case 'S':
			name, err := r.ReadUTF8CStrAndFinalize()
			if err != nil {
				return Request{}, err
			}
			return Request{Kind: ReqClosePrepared, Name: name}, nil
		case 'P':
			name, err := r.ReadUTF8CStrAndFinalize()
			if err != nil {
				return Request{}, err
			}
			return Request{Kind: ReqClosePortal, Name: name}, nil
		default:
			return Request{}, ErrInvalidCloseType
		}
	case 'd':
		return Request{Kind: ReqCopyData, Bytes: r.ReadRemainingBytes()}, nil
	case 'c':
		return Request{Kind: ReqCopyDone}, nil
	case 'f':
		msg, err := r.ReadUTF8CStrAndFinalize()
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqCopyFail, ErrorMessage: msg}, nil
	case 'D':
		kind, err := r.ReadByte()
		if err != nil {
			return Request{}, err
		}
		switch kind {
		case 'S':
			name, err := r.ReadUTF8CStrAndFinalize()
			if err != nil {
				return Request{}, err
			}
			return Request{Kind: ReqDescribePrepared, Name: name}, nil
		case 'P':
			name, err := r.ReadUTF8CStrAndFinalize()
			if err != nil {
				return Request{}, err
			}
			return Request{Kind: ReqDescribePortal, Name: name}, nil
		default:
			return Request{}, ErrInvalidDescribeType
		}
	case 'E':
		portal, err := r.ReadUTF8CStr()
		if err != nil {
			return Request{}, err
		}
		maxRows, err := r.ReadInt32AndFinalize()
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqExecute, Portal: portal, MaxRows: maxRows}, nil
	case 'H':
		return Request{Kind: ReqFlush}, nil
	case 'F':
		return parseFunctionCallRequest(r)
	case 'p':
		return Request{Kind: ReqAuthDataResponse, Bytes: r.ReadRemainingBytes()}, nil
	case 'P':
		preparedStmtName, err := r.ReadUTF8CStr()
		if err != nil {
			return Request{}, err
		}
		queryText, err := r.ReadUTF8CStr()
		if err != nil {
			return Request{}, err
		}
		paramCnt, err := r.ReadInt16Length()
		if err != nil {
			return Request{}, err
		}
		paramOIDs, err := r.ReadInt32ListAndFinalize(paramCnt)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqParse, ParseName: preparedStmtName, ParseQuery: queryText, ParamOIDs: paramOIDs}, nil
	case 'Q':
		text, err := r.ReadUTF8CStrAndFinalize()
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqQuery, QueryText: text}, nil
	case 'S':
		return Request{Kind: ReqSync}, nil
	case 'X':
		return Request{Kind: ReqTerminate}, nil
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrUnrecognizedIdentifier, identifier)
	}
}

func parseBindRequest(r *wire.Reader) (Request, error) {
	destPortal, err := r.ReadUTF8CStr()
	if err != nil {
		return Request{}, err
	}
	preparedStmt, err := r.ReadUTF8CStr()
	if err != nil {
		return Request{}, err
	}
	formatCodes, err := readBoolList(r)
	if err != nil {
		return Request{}, err
	}
	paramCnt, err := r.ReadInt16Length()
	if err != nil {
		return Request{}, err
	}
	params := make([]NullableBytes, 0, paramCnt)
	for i := 0; i < paramCnt; i++ {
		nb, err := readNullableBytes(r)
		if err != nil {
			return Request{}, err
		}
		params = append(params, nb)
	}
	resultFormatCodes, err := readBoolList(r)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Kind:              ReqBind,
		Portal:            destPortal,
		PreparedStmt:      preparedStmt,
		ParamFormatCodes:  formatCodes,
		Params:            params,
		ResultFormatCodes: resultFormatCodes,
	}, nil
}

func parseFunctionCallRequest(r *wire.Reader) (Request, error) {
	objectID, err := r.ReadInt32()
	if err != nil {
		return Request{}, err
	}
	argFormatCodes, err := readBoolList(r)
	if err != nil {
		return Request{}, err
	}
	argCnt, err := r.ReadInt16Length()
	if err != nil {
		return Request{}, err
	}
	args := make([]NullableBytes, 0, argCnt)
	for i := 0; i < argCnt; i++ {
		nb, err := readNullableBytes(r)
		if err != nil {
			return Request{}, err
		}
		args = append(args, nb)
	}
	resultIsBinary, err := readBoolAndFinalize(r)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Kind:                 ReqFunctionCall,
		ObjectID:             objectID,
		ArgFormatCodes:       argFormatCodes,
		Arguments:            args,
		ResultFormatIsBinary: resultIsBinary,
	}, nil
}

func readBoolList(r *wire.Reader) ([]bool, error) {
	count, err := r.ReadInt16Length()
	if err != nil {
		return nil, err
	}
	codes := make([]bool, 0, count)
	for i := 0; i < count; i++ {
		b, err := readBool(r)
		if err != nil {
			return nil, err
		}
		codes = append(codes, b)
	}
	return codes, nil
}

func readBool(r *wire.Reader) (bool, error) {
	v, err := r.ReadInt16()
	if err != nil {
		return false, err
	}
	switch v {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, ErrInvalidBoolField
	}
}

func readBoolAndFinalize(r *wire.Reader) (bool, error) {
	b, err := readBool(r)
	if err != nil {
		return false, err
	}
	return b, r.Finalize()
}

func readNullableBytes(r *wire.Reader) (NullableBytes, error) {
	length, isNull, err := r.ReadNullableInt32Length()
	if err != nil {
		return NullableBytes{}, err
	}
	if isNull {
		return NullableBytes{Null: true}, nil
	}
	data, err := r.ReadBytes(length)
	if err != nil {
		return NullableBytes{}, err
	}
	return NullableBytes{Data: data}, nil
}

// RespKind discriminates Response variants.
type RespKind int

const (
	RespUnknown RespKind = iota
	RespAuthenticationOk
	RespAuthenticationKerberosV5
	RespAuthenticationCleartextPassword
	RespAuthenticationMD5Password
	RespAuthenticationSCMCredential
	RespAuthenticationGSS
	RespAuthenticationGSSContinue
	RespAuthenticationSSPI
	RespAuthenticationSASL
	RespAuthenticationSASLContinue
	RespAuthenticationSASLFinal
	RespBackendKeyData
	RespBindComplete
	RespCloseComplete
	RespCommandComplete
	RespCopyData
	RespCopyDone
	RespCopyInResponse
	RespCopyOutResponse
	RespCopyBothResponse
	RespDataRow
	RespEmptyQueryResponse
	RespErrorResponse
	RespFunctionCallResponse
	RespNegotiateProtocolVersion
	RespNoData
	RespNoticeResponse
	RespNotificationResponse
	RespParameterDescription
	RespParameterStatus
	RespParseComplete
	RespPortalSuspended
	RespReadyForQuery
	RespRowDescription
)

// Response is a single PostgreSQL backend (server-to-client) message.
type Response struct {
	Kind RespKind

	Bytes []byte // CopyData, GSSContinue, SASLContinue, SASLFinal

	Salt [4]byte // AuthenticationMD5Password

	Mechanisms []string // AuthenticationSASL

	ProcessID int32 // BackendKeyData, NotificationResponse
	SecretKey int32 // BackendKeyData

	CommandTag string // CommandComplete

	IsBinary    bool // Copy{In,Out,Both}Response
	FormatCodes []bool

	Columns []NullableBytes // DataRow

	Fields map[byte]string // ErrorResponse, NoticeResponse

	Result NullableBytes // FunctionCallResponse

	NewestMinorProtocol  int32 // NegotiateProtocolVersion
	UnrecognizedOptions  []string

	Channel string // NotificationResponse
	Payload string // NotificationResponse

	ParamOIDs []int32 // ParameterDescription

	ParamName  string // ParameterStatus
	ParamValue string // ParameterStatus

	TxStatus TransactionStatus // ReadyForQuery

	RowFields []RowField // RowDescription
}

// ParseResponse decodes a standard backend packet.
func ParseResponse(buffer []byte) (Response, error) {
	identifier, packetLength, err := ReadStandardPacketLen(buffer)
	if err != nil {
		return Response{}, err
	}
	if len(buffer) != packetLength {
		return Response{}, ErrResponseLengthMismatch
	}

	r := wire.NewReader(buffer)
	r.AdvanceUpTo(5)

	switch identifier {
	case '2', '3', 'c', 'I', 'n', '1', 's':
		if err := r.Finalize(); err != nil {
			return Response{}, err
		}
	}

	switch identifier {
	case 'K':
		pid, err := r.ReadInt32()
		if err != nil {
			return Response{}, err
		}
		key, err := r.ReadInt32AndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespBackendKeyData, ProcessID: pid, SecretKey: key}, nil
	case 'R':
		return parseAuthResponse(r)
	case '2':
		return Response{Kind: RespBindComplete}, nil
	case '3':
		return Response{Kind: RespCloseComplete}, nil
	case 'C':
		tag, err := r.ReadUTF8CStrAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespCommandComplete, CommandTag: tag}, nil
	case 'd':
		return Response{Kind: RespCopyData, Bytes: r.ReadRemainingBytes()}, nil
	case 'c':
		return Response{Kind: RespCopyDone}, nil
	case 'G':
		return parseCopyResponse(r, RespCopyInResponse)
	case 'H':
		return parseCopyResponse(r, RespCopyOutResponse)
	case 'W':
		return parseCopyResponse(r, RespCopyBothResponse)
	case 'D':
		return parseDataRowResponse(r)
	case 'I':
		return Response{Kind: RespEmptyQueryResponse}, nil
	case 'E':
		fields, err := r.ReadTermUTF8ByteStringMapAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespErrorResponse, Fields: fields}, nil
	case 'V':
		length, isNull, err := r.ReadNullableInt32Length()
		if err != nil {
			return Response{}, err
		}
		var result NullableBytes
		if isNull {
			result = NullableBytes{Null: true}
		} else {
			data, err := r.ReadBytesAndFinalize(length)
			if err != nil {
				return Response{}, err
			}
			result = NullableBytes{Data: data}
		}
		return Response{Kind: RespFunctionCallResponse, Result: result}, nil
	case 'v':
		newestMinor, err := r.ReadInt32()
		if err != nil {
			return Response{}, err
		}
		optionsCnt, err := r.ReadInt32Length()
		if err != nil {
			return Response{}, err
		}
		options, err := r.ReadUTF8CStrsAndFinalize(optionsCnt)
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespNegotiateProtocolVersion, NewestMinorProtocol: newestMinor, UnrecognizedOptions: options}, nil
	case 'n':
		return Response{Kind: RespNoData}, nil
	case 'N':
		fields, err := r.ReadTermUTF8ByteStringMapAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespNoticeResponse, Fields: fields}, nil
	case 'A':
		pid, err := r.ReadInt32()
		if err != nil {
			return Response{}, err
		}
		channel, err := r.ReadUTF8CStr()
		if err != nil {
			return Response{}, err
		}
		payload, err := r.ReadUTF8CStrAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespNotificationResponse, ProcessID: pid, Channel: channel, Payload: payload}, nil
	case 't':
		cnt, err := r.ReadInt16Length()
		if err != nil {
			return Response{}, err
		}
		oids, err := r.ReadInt32ListAndFinalize(cnt)
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespParameterDescription, ParamOIDs: oids}, nil
	case 'S':
		name, err := r.ReadUTF8CStr()
		if err != nil {
			return Response{}, err
		}
		value, err := r.ReadUTF8CStrAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespParameterStatus, ParamName: name, ParamValue: value}, nil
	case '1':
		return Response{Kind: RespParseComplete}, nil
	case 's':
		return Response{Kind: RespPortalSuspended}, nil
	case 'Z':
		status, err := r.ReadByte()
		if err != nil {
			return Response{}, err
		}
		switch TransactionStatus(status) {
		case TxIdle, TxInProgress, TxFailed:
			return Response{Kind: RespReadyForQuery, TxStatus: TransactionStatus(status)}, nil
		default:
			return Response{}, ErrInvalidTxStatus
		}
	case 'T':
		return parseRowDescriptionResponse(r)
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnrecognizedIdentifier, identifier)
	}
}

func parseCopyResponse(r *wire.Reader, kind RespKind) (Response, error) {
	isBinaryByte, err := r.ReadByte()
	if err != nil {
		return Response{}, err
	}
	var isBinary bool
	switch isBinaryByte {
	case '1':
		isBinary = true
	case '0':
		isBinary = false
	default:
		return Response{}, ErrInvalidBoolField
	}
	formatCodes, err := readBoolList(r)
	if err != nil {
		return Response{}, err
	}
	if err := r.Finalize(); err != nil {
		return Response{}, err
	}
	return Response{Kind: kind, IsBinary: isBinary, FormatCodes: formatCodes}, nil
}

func parseDataRowResponse(r *wire.Reader) (Response, error) {
	cnt, err := r.ReadInt16Length()
	if err != nil {
		return Response{}, err
	}
	columns := make([]NullableBytes, 0, cnt)
	for i := 0; i < cnt; i++ {
		nb, err := readNullableBytes(r)
		if err != nil {
			return Response{}, err
		}
		columns = append(columns, nb)
	}
	if err := r.Finalize(); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespDataRow, Columns: columns}, nil
}

func parseRowDescriptionResponse(r *wire.Reader) (Response, error) {
	cnt, err := r.ReadInt16Length()
	if err != nil {
		return Response{}, err
	}
	fields := make([]RowField, 0, cnt)
	for i := 0; i < cnt; i++ {
		name, err := r.ReadUTF8CStr()
		if err != nil {
			return Response{}, err
		}
		tableOID, err := r.ReadInt32()
		if err != nil {
			return Response{}, err
		}
		attr, err := r.ReadInt16()
		if err != nil {
			return Response{}, err
		}
		typeOID, err := r.ReadInt32()
		if err != nil {
			return Response{}, err
		}
		typeSize, err := r.ReadInt16()
		if err != nil {
			return Response{}, err
		}
		typeMod, err := r.ReadInt32()
		if err != nil {
			return Response{}, err
		}
		isBinary, err := readBool(r)
		if err != nil {
			return Response{}, err
		}
		fields = append(fields, RowField{
			Name:         name,
			TableOID:     tableOID,
			ColumnAttr:   attr,
			DataTypeOID:  typeOID,
			DataTypeSize: typeSize,
			TypeModifier: typeMod,
			IsBinary:     isBinary,
		})
	}
	if err := r.Finalize(); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespRowDescription, RowFields: fields}, nil
}

func parseAuthResponse(r *wire.Reader) (Response, error) {
	mechanism, err := r.ReadInt32()
	if err != nil {
		return Response{}, err
	}
	switch mechanism {
	case 0, 2, 3, 6, 7, 9:
		if err := r.Finalize(); err != nil {
			return Response{}, err
		}
	}

	switch mechanism {
	case 0:
		return Response{Kind: RespAuthenticationOk}, nil
	case 2:
		return Response{Kind: RespAuthenticationKerberosV5}, nil
	case 3:
		return Response{Kind: RespAuthenticationCleartextPassword}, nil
	case 5:
		salt, err := r.Read4BytesAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespAuthenticationMD5Password, Salt: salt}, nil
	case 6:
		return Response{Kind: RespAuthenticationSCMCredential}, nil
	case 7:
		return Response{Kind: RespAuthenticationGSS}, nil
	case 8:
		return Response{Kind: RespAuthenticationGSSContinue, Bytes: r.ReadRemainingBytes()}, nil
	case 9:
		return Response{Kind: RespAuthenticationSSPI}, nil
	case 10:
		mechanisms, err := r.ReadTermUTF8CStrsAndFinalize()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespAuthenticationSASL, Mechanisms: mechanisms}, nil
	case 11:
		return Response{Kind: RespAuthenticationSASLContinue, Bytes: r.ReadRemainingBytes()}, nil
	case 12:
		return Response{Kind: RespAuthenticationSASLFinal, Bytes: r.ReadRemainingBytes()}, nil
	default:
		return Response{}, ErrUnrecognizedAuthKind
	}
}
