package pgwire

import (
	"testing"

	"github.com/jackc/pgproto3/v2"
)

func TestParseStartupMessage(t *testing.T) {
	t.Parallel()
	encoded, err := (&pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters:      map[string]string{"user": "alice", "database": "prod"},
	}).Encode(nil)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	req, err := ParseStartupRequest(encoded)
	if err != nil {
		t.Fatalf("ParseStartupRequest: %v", err)
	}
	if req.Kind != ReqStartupMessage {
		t.Fatalf("Kind = %v, want ReqStartupMessage", req.Kind)
	}
	if req.User != "alice" {
		t.Errorf("User = %q, want alice", req.User)
	}
	if req.StartupParams["database"] != "prod" {
		t.Errorf("StartupParams[database] = %q, want prod", req.StartupParams["database"])
	}
}

func TestParseSSLRequest(t *testing.T) {
	t.Parallel()
	buf := []byte{0, 0, 0, 8, 4, 210, 22, 47} // length=8, code=80877103
	req, err := ParseStartupRequest(buf)
	if err != nil {
		t.Fatalf("ParseStartupRequest: %v", err)
	}
	if req.Kind != ReqSSLRequest {
		t.Fatalf("Kind = %v, want ReqSSLRequest", req.Kind)
	}
}

func TestParseStartupMissingUser(t *testing.T) {
	t.Parallel()
	encoded, err := (&pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters:      map[string]string{"database": "prod"},
	}).Encode(nil)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if _, err := ParseStartupRequest(encoded); err != ErrStartupMissingUser {
		t.Fatalf("got %v, want ErrStartupMissingUser", err)
	}
}

func TestParseQueryRequest(t *testing.T) {
	t.Parallel()
	encoded := (&pgproto3.Query{String: "SELECT 1"}).Encode(nil)
	req, err := ParseRequest(encoded)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Kind != ReqQuery || req.QueryText != "SELECT 1" {
		t.Fatalf("got %+v, want Query(SELECT 1)", req)
	}
}

func TestParseParseRequest(t *testing.T) {
	t.Parallel()
	encoded := (&pgproto3.Parse{
		Name:          "stmt1",
		Query:         "SELECT $1",
		ParameterOIDs: []uint32{23},
	}).Encode(nil)
	req, err := ParseRequest(encoded)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Kind != ReqParse || req.ParseName != "stmt1" || req.ParseQuery != "SELECT $1" {
		t.Fatalf("got %+v", req)
	}
	if len(req.ParamOIDs) != 1 || req.ParamOIDs[0] != 23 {
		t.Fatalf("ParamOIDs = %v, want [23]", req.ParamOIDs)
	}
}

func TestParseReadyForQuery(t *testing.T) {
	t.Parallel()
	encoded := (&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil)
	resp, err := ParseResponse(encoded)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Kind != RespReadyForQuery || resp.TxStatus != TxIdle {
		t.Fatalf("got %+v, want ReadyForQuery(Idle)", resp)
	}
}

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()
	encoded := (&pgproto3.ErrorResponse{
		Severity: "ERROR",
		Code:     "42000",
		Message:  "syntax error",
	}).Encode(nil)
	resp, err := ParseResponse(encoded)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Kind != RespErrorResponse {
		t.Fatalf("Kind = %v, want RespErrorResponse", resp.Kind)
	}
	if resp.Fields['C'] != "42000" {
		t.Errorf("Fields[C] = %q, want 42000", resp.Fields['C'])
	}
	if resp.Fields['M'] != "syntax error" {
		t.Errorf("Fields[M] = %q, want 'syntax error'", resp.Fields['M'])
	}
}

func TestParseRequestRejectsTrailingData(t *testing.T) {
	t.Parallel()
	encoded := (&pgproto3.Query{String: "SELECT 1"}).Encode(nil)
	encoded = append(encoded, 0xFF)
	if _, err := ParseRequest(encoded); err == nil {
		t.Fatal("expected error for packet with trailing garbage")
	}
}

func TestParseRequestUnrecognizedIdentifier(t *testing.T) {
	t.Parallel()
	buf := []byte{'~', 0, 0, 0, 4}
	if _, err := ParseRequest(buf); err == nil {
		t.Fatal("expected error for unrecognized identifier")
	}
}
