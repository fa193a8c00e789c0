package continuum

// Attachment is a binary artifact attached to a message: an image, a file,
// or any other payload the executor knows how to forward to the agent.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data,omitempty"`
}

// Content is message content submitted for dispatch: the user's text plus
// any attachments.
type Content struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
