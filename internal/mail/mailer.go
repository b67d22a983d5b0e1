// Package mail sends templated email for the site and keeps the dispatch
// log that records every attempt.
package mail

import "context"

// Attachment is a named byte blob attached to an outbound message.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Message is one outbound email. Template names a registered text template;
// Data fills it. Address lists follow the dispatch log's nil-vs-empty
// convention: a nil CC list means "no cc decision was made", an empty one
// means "cc nobody".
//
// CCInfo controls whether the rendered body gets a footer listing the
// carbon-copy recipients. It is suppressed on resends, where the original
// send already made that call.
type Message struct {
	Subject     string
	Template    string
	Data        map[string]string
	To          []string
	CC          []string
	BCC         []string
	ReplyTo     []string
	CCInfo      bool
	Attachments []Attachment
}

// Mailer is the transport collaborator: it accepts a composed message and
// reports the transport outcome. Implementations must not mutate msg.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
