package broker

import (
	"fmt"
	"strings"
)

// Validate checks an outgoing message against the ingestion rules and returns
// a ValidationError naming the first violated rule. maxDataLength is the
// configured cap for a single payload. Length checks are byte lengths.
func Validate(m OutgoingMessage, maxDataLength int) error {
	if strings.TrimSpace(m.Sender) == "" {
		return &ValidationError{Reason: "sender is unspecified"}
	}
	if strings.TrimSpace(m.Recipient) == "" {
		return &ValidationError{Reason: "recipient is unspecified"}
	}
	if m.SendTime.Before(MinSendTime) {
		return &ValidationError{Reason: "invalid send time"}
	}
	if strings.TrimSpace(m.Data) == "" && strings.TrimSpace(m.Text) == "" {
		return &ValidationError{Reason: "data or text must be specified"}
	}
	if strings.TrimSpace(m.Data) != "" && strings.TrimSpace(m.DataType) == "" {
		return &ValidationError{Reason: "data type is unspecified"}
	}

	if len(m.Sender) > MaxSenderLen {
		return &ValidationError{Reason: fmt.Sprintf("sender must be at most %d bytes", MaxSenderLen)}
	}
	if len(m.Recipient) > MaxRecipientLen {
		return &ValidationError{Reason: fmt.Sprintf("recipient must be at most %d bytes", MaxRecipientLen)}
	}
	if len(m.DataType) > MaxDataTypeLen {
		return &ValidationError{Reason: fmt.Sprintf("data type must be at most %d bytes", MaxDataTypeLen)}
	}
	if len(m.Text) > MaxTextLen {
		return &ValidationError{Reason: fmt.Sprintf("text must be at most %d bytes", MaxTextLen)}
	}
	if len(m.Data) > maxDataLength {
		return &ValidationError{Reason: fmt.Sprintf("data must be at most %d bytes", maxDataLength)}
	}
	return nil
}
