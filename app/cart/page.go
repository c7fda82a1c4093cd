package cart

import "github.com/simplestore/storefront/app/session"

// Page carries the bits every storefront page shows: the cart badge and the
// pending flash messages.
type Page struct {
	CartCount int               `json:"cart_count"`
	Messages  []session.Message `json:"messages"`
}

// NewPage drains the session's flash messages.
func NewPage(sess *session.Session) Page {
	messages := sess.Flashes()
	if messages == nil {
		messages = []session.Message{}
	}
	return Page{
		CartCount: Get(sess).Count(),
		Messages:  messages,
	}
}
