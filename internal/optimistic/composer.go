package optimistic

import (
	"strings"
	"sync"
)

// Composer holds the draft text of a comment box. The draft clears the
// moment a submission is accepted for sending, not when the server responds;
// a failed send restores it so nothing typed is lost.
type Composer struct {
	mu      sync.Mutex
	draft   string
	sending string
}

// SetDraft replaces the current draft.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft returns the current draft text.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Submit clears the box and returns the trimmed content to send. Whitespace
// only drafts are rejected locally, mirroring the server-side guard, and the
// box keeps its content.
func (c *Composer) Submit() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content := strings.TrimSpace(c.draft)
	if content == "" {
		return "", false
	}
	c.sending = c.draft
	c.draft = ""
	return content, true
}

// Ack drops the in-flight copy after the server accepted the comment.
func (c *Composer) Ack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = ""
}

// Restore puts a failed submission back into the box. Anything typed since
// the failed send is kept in front of the restored text.
func (c *Composer) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending == "" {
		return
	}
	if c.draft == "" {
		c.draft = c.sending
	} else {
		c.draft = c.draft + "\n" + c.sending
	}
	c.sending = ""
}
