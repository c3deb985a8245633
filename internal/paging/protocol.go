package paging

import (
	"errors"
	"fmt"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// ActionGetRecords is the action of every paging request.
const ActionGetRecords = "getRecords"

var (
	// ErrInvalidRoll is returned when the window cannot move in the requested
	// direction without asking the server for records that do not exist.
	ErrInvalidRoll = errors.New("roll not allowed")
	// ErrFoldMetadata is returned for a fold toggle whose lines-per-record
	// value is missing or malformed.
	ErrFoldMetadata = errors.New("fold lines per record not available")
	// ErrNotPagingKey is returned for keys that neither roll nor fold.
	ErrNotPagingKey = errors.New("key does not page the subfile")
)

// Request is the body of a getRecords call. To is exclusive.
type Request struct {
	Action          string `json:"action"`
	RecordName      string `json:"recordName"`
	RequestorAidKey string `json:"requestorAidKey"`
	From            int    `json:"from"`
	To              int    `json:"to"`
	WantDropped     bool   `json:"wantDropped"`
}

// Last returns the last record number requested.
func (r Request) Last() int {
	return r.To - 1
}

// EchoRequest is the request as the server understood it.
type EchoRequest struct {
	RecordName      string `json:"recordName"`
	From            int    `json:"from"`
	To              int    `json:"to"`
	RequestorAidKey string `json:"requestorAidKey"`
	Mode            string `json:"mode"`
	WantDropped     bool   `json:"wantDropped"`
}

// Envelope is the server's answer to a getRecords call. A RecordCount of
// zero or less means there are no records in the requested direction.
type Envelope struct {
	RecordCount int         `json:"recordCount"`
	IsLastPage  bool        `json:"isLastPage"`
	HTML        string      `json:"html"`
	Request     EchoRequest `json:"request"`
}

// Plan computes the record range the key asks for.
//
//   - PgDn starts PageSize records below the current top.
//   - PgUp starts PageSize records above it, clamped at 0; at the very top the
//     roll is refused with ErrInvalidRoll.
//   - The fold key keeps the top and asks for the opposite fold state. The
//     page grows by the lines-per-record factor when records are to be shown
//     truncated on a single line.
//
// A window holds PageSize records when folded and PageSize times
// FoldLinesPerRecord records when truncated. The fold factor sizes the
// window only; rolls always step by PageSize.
func Plan(key aid.Key, store *subfile.Store) (Request, error) {
	req := Request{
		Action:          ActionGetRecords,
		RecordName:      store.Name,
		RequestorAidKey: string(key),
		WantDropped:     !store.FldDrop.IsFolded,
	}
	top := store.Current.TopRrn
	pageSize := store.SflRecords.PageSize
	wantPageSize := pageSize

	switch {
	case store.IsFoldKey(string(key)):
		lines, ok := store.FldDrop.FoldLinesPerRecord.Int()
		if !ok {
			return Request{}, fmt.Errorf("%w: %q", ErrFoldMetadata, store.FldDrop.FoldLinesPerRecord)
		}
		req.WantDropped = store.FldDrop.IsFolded
		if req.WantDropped {
			wantPageSize = pageSize * lines
		}
		req.From = top

	case key == aid.PgDn || key == aid.PgUp:
		wantPageSize = store.EffectivePageSize()
		if key == aid.PgDn {
			req.From = top + pageSize
		} else {
			req.From = top - pageSize
			if req.From < 0 {
				req.From = 0
			}
			if top == 0 && req.From == 0 {
				return Request{}, ErrInvalidRoll
			}
		}

	default:
		return Request{}, fmt.Errorf("%w: %s", ErrNotPagingKey, key)
	}

	if wantPageSize <= 0 {
		wantPageSize = 1
	}
	reqTo := req.From + wantPageSize - 1
	req.To = reqTo + 1
	return req, nil
}
