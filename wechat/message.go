package wechat

import (
	"encoding/xml"

	"github.com/tcmhub/wechat-login-bridge/internal/errors"
)

// Message types and event types delivered by the platform.
const (
	MsgTypeText  = "text"
	MsgTypeEvent = "event"

	EventSubscribe = "subscribe"
	EventScan      = "SCAN"

	// EventKeyPrefix is prepended to the scene string when a subscribe
	// event is triggered by a QR scan ("qrscene_<scene>").
	EventKeyPrefix = "qrscene_"
)

// MixMessage is an inbound callback message. The platform delivers a single
// XML shape for all message and event kinds; unused fields stay empty.
type MixMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Content      string   `xml:"Content"`
	MsgID        int64    `xml:"MsgId"`
	Event        string   `xml:"Event"`
	EventKey     string   `xml:"EventKey"`
	Ticket       string   `xml:"Ticket"`
}

// ParseMessage decodes an inbound callback body.
// Returns ErrMalformedCallback if the body is not usable XML.
func ParseMessage(body []byte) (*MixMessage, error) {
	var msg MixMessage
	if err := xml.Unmarshal(body, &msg); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedCallback, "xml unmarshal (%v)", err)
	}
	if msg.MsgType == "" {
		return nil, errors.Wrapf(errors.ErrMalformedCallback, "missing MsgType")
	}
	return &msg, nil
}

// CDATA wraps reply text the way the platform expects it
type CDATA struct {
	Text string `xml:",cdata"`
}

// TextReply is a passive reply rendered into the callback HTTP response.
type TextReply struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   CDATA    `xml:"ToUserName"`
	FromUserName CDATA    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      CDATA    `xml:"MsgType"`
	Content      CDATA    `xml:"Content"`
}

// NewTextReply builds a passive text reply to an inbound message, with the
// sender and receiver swapped.
func NewTextReply(inbound *MixMessage, createTime int64, content string) *TextReply {
	return &TextReply{
		ToUserName:   CDATA{Text: inbound.FromUserName},
		FromUserName: CDATA{Text: inbound.ToUserName},
		CreateTime:   createTime,
		MsgType:      CDATA{Text: MsgTypeText},
		Content:      CDATA{Text: content},
	}
}

// Marshal renders a reply as XML
func (r *TextReply) Marshal() ([]byte, error) {
	return xml.Marshal(r)
}
