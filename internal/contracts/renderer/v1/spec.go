// Package v1 is the wire contract of the templated image renderer
// (Placid-compatible REST API).
// - create: POST <base> with CreateRequest, answers with Image
// - get:    GET <base>/<id>, answers with Image
// - delete: DELETE <base>/<id>
package v1

import (
	"bytes"
	"encoding/json"
)

// Renderer-side job states.
const (
	StatusQueued   = "queued"
	StatusPending  = "pending"
	StatusFinished = "finished"
	StatusError    = "error"
)

// Layer binds a named template slot to text or image content.
type Layer struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Layers maps layer names to bindings.
type Layers map[string]Layer

// Modifications controls the output file.
type Modifications struct {
	Filename    string `json:"filename,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	ImageFormat string `json:"image_format,omitempty"`
	DPI         int    `json:"dpi,omitempty"`
	ColorMode   string `json:"color_mode,omitempty"`
}

// CreateRequest is the create-image body. CreateNow asks the renderer to
// render synchronously when it can.
type CreateRequest struct {
	TemplateUUID   string         `json:"template_uuid"`
	Layers         Layers         `json:"layers"`
	Modifications  *Modifications `json:"modifications,omitempty"`
	CreateNow      bool           `json:"create_now"`
	WebhookSuccess string         `json:"webhook_success,omitempty"`
}

// Image is returned by create and get.
type Image struct {
	ID       ImageID `json:"id"`
	Status   string  `json:"status"`
	ImageURL string  `json:"image_url,omitempty"`
}

// ImageID accepts both numeric and string ids on the wire.
type ImageID string

func (id *ImageID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ImageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ImageID(n.String())
	return nil
}

func (id ImageID) String() string { return string(id) }

// Ready reports a finished render with a usable URL.
func (i Image) Ready() bool {
	return i.Status == StatusFinished && i.ImageURL != ""
}

// Failed reports a render the renderer gave up on.
func (i Image) Failed() bool {
	return i.Status == StatusError
}
