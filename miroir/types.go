package miroir

// Script locations accepted by AddScript.
const (
	LocationHead = "head"
	LocationBody = "body"
)

// Clone statuses reported by Status. "error" is reserved for future health
// checks; no current operation produces it.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// PixelMarkerID is the element id carried by the injected pixel script so
// RemovePixel and Refresh can relocate the block deterministically.
const PixelMarkerID = "miroir-pixel-script"

// Page is the public view of a clone returned to API consumers.
type Page struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	CloneURL  string   `json:"cloneUrl"`
	PixelID   *string  `json:"pixelId"`
	Scripts   []Script `json:"scripts"`
	ViewCount int64    `json:"viewCount"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"lastUpdated"`
}

// Script is the public view of one injected content block.
type Script struct {
	ID        string `json:"scriptId"`
	Content   string `json:"content"`
	Location  string `json:"location"`
	CreatedAt int64  `json:"createdAt"`
}

// Link describes one anchor element of a clone document.
// Index is the 0-based position among anchors only, in document order; it is
// not a stable identifier: edits that add or remove anchors shift the
// indices of everything after them.
type Link struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Href  string `json:"href"`
}
