package watermark

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which overlay elements are drawn.
type Mode string

const (
	ModeLogoContact Mode = "logo-contact"
	ModeLogoOnly    Mode = "logo-only"
	ModeContactOnly Mode = "contact-only"
)

func (m Mode) drawsLogo() bool { return m == ModeLogoContact || m == ModeLogoOnly }
func (m Mode) drawsText() bool { return m == ModeLogoContact || m == ModeContactOnly }

// Anchor is the canvas corner (or center) the overlay box is pinned to.
type Anchor string

const (
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorCenter      Anchor = "center"
)

// Point is a relative position, each axis in [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Options are the per-image placement controls.
type Options struct {
	Mode        Mode    `json:"mode"`
	Anchor      Anchor  `json:"anchor"`
	Scale       float64 `json:"scale"`
	Opacity     float64 `json:"opacity"`
	ContactText string  `json:"contact_text"`
	// Relative, when set, places the box at ((W-w)*X, (H-h)*Y) and
	// overrides Anchor.
	Relative *Point `json:"relative,omitempty"`
}

const (
	DefaultScale   = 1.0
	DefaultOpacity = 0.7
	MaxScale       = 10.0
)

// DefaultOptions is the state of a freshly selected file.
func DefaultOptions(contact string) Options {
	return Options{
		Mode:        ModeLogoContact,
		Anchor:      AnchorBottomRight,
		Scale:       DefaultScale,
		Opacity:     DefaultOpacity,
		ContactText: contact,
	}
}

// ParseMode accepts the mode names case-insensitively; "" is logo-contact.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLogoContact, nil
	case ModeLogoContact, ModeLogoOnly, ModeContactOnly:
		return m, nil
	}
	return "", fmt.Errorf("unknown watermark mode %q", s)
}

// ParseAnchor accepts the anchor names case-insensitively; "" is bottom-right.
func ParseAnchor(s string) (Anchor, error) {
	switch a := Anchor(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AnchorBottomRight, nil
	case AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight, AnchorCenter:
		return a, nil
	}
	return "", fmt.Errorf("unknown watermark anchor %q", s)
}

// Validate fills empty mode/anchor and rejects out-of-range values.
func (o *Options) Validate() error {
	var err error
	if o.Mode, err = ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if o.Anchor, err = ParseAnchor(string(o.Anchor)); err != nil {
		return err
	}
	if o.Scale <= 0 || o.Scale > MaxScale {
		return fmt.Errorf("scale must be in (0, %g]", MaxScale)
	}
	if o.Opacity < 0 || o.Opacity > 1 {
		return errors.New("opacity must be between 0 and 1")
	}
	if r := o.Relative; r != nil && (r.X < 0 || r.X > 1 || r.Y < 0 || r.Y > 1) {
		return errors.New("relative position must be between 0 and 1")
	}
	o.ContactText = strings.TrimSpace(o.ContactText)
	return nil
}
