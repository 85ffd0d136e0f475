// Package broker contains Courier's store-and-forward core: message
// validation, ingestion, and cursor-based retrieval with size-bounded batches.
package broker

import "time"

// MinSendTime is the earliest SendTime the broker accepts.
var MinSendTime = time.Date(2020, 6, 13, 0, 0, 0, 0, time.UTC)

// Field limits enforced at ingestion (byte lengths).
const (
	MaxSenderLen    = 64
	MaxRecipientLen = 64
	MaxDataTypeLen  = 36
	MaxTextLen      = 256
)

// OutgoingMessage is a sender-submitted message before it is accepted.
// Data carries the optional large payload; it is offloaded to the document
// store and never persisted inline.
type OutgoingMessage struct {
	Sender    string
	Recipient string
	SendTime  time.Time
	Data      string
	DataType  string
	Text      string
}

// StoredMessage is the durable message record. Once inserted it is immutable;
// ID is assigned by the store and is strictly increasing across the whole
// store, which makes it usable as a pagination cursor.
type StoredMessage struct {
	ID            int64
	ContentID     string // document-store key; empty when there is no payload
	Sender        string
	Recipient     string
	SendTime      time.Time
	StoreTime     time.Time
	PayloadLength int // byte length of the external payload, 0 if none
	DataType      string
	Text          string
}

// IncomingMessage is a message as delivered to a recipient, with the external
// payload resolved back into Data.
type IncomingMessage struct {
	ID        int64
	Sender    string
	Recipient string
	SendTime  time.Time
	Data      string
	DataType  string
	Text      string
}

// BacklogMetrics aggregates the undelivered messages for a recipient past a
// cursor: how many there are and how many payload bytes they reference.
type BacklogMetrics struct {
	Count         int
	PayloadLength int
}

// FetchResult is the outcome of one retrieval call.
//
// Count is the number of messages actually returned (after batch-size
// truncation); TotalCount is the full backlog size past the cursor.
type FetchResult struct {
	Count      int
	TotalCount int
	Messages   []IncomingMessage
}
