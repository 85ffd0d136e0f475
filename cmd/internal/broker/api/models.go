package brokerapi

import (
	"time"

	"courier/cmd/internal/broker"
)

type submitRequest struct {
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	SendTime  time.Time `json:"sendTime"`
	Data      string    `json:"data"`
	DataType  string    `json:"dataType"`
	Text      string    `json:"text"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	SendTime  time.Time `json:"sendTime"`
	Data      string    `json:"data,omitempty"`
	DataType  string    `json:"dataType"`
	Text      string    `json:"text"`
}

type messagesResponse struct {
	MessageCount      int               `json:"messageCount"`
	MessageTotalCount int               `json:"messageTotalCount"`
	Messages          []messageResponse `json:"messages"`
}

func toMessagesResponse(res broker.FetchResult) messagesResponse {
	out := messagesResponse{
		MessageCount:      res.Count,
		MessageTotalCount: res.TotalCount,
		Messages:          make([]messageResponse, 0, len(res.Messages)),
	}
	for _, m := range res.Messages {
		out.Messages = append(out.Messages, messageResponse{
			ID:        m.ID,
			Sender:    m.Sender,
			Recipient: m.Recipient,
			SendTime:  m.SendTime,
			Data:      m.Data,
			DataType:  m.DataType,
			Text:      m.Text,
		})
	}
	return out
}
