package service

import "github.com/backdrop-labs/backdrop-proxy-service/background"

// BackgroundStatusResponse wraps values
// returned by calls to /status/background
type BackgroundStatusResponse struct {
	Enabled  bool                 `json:"enabled"`             // whether the rotator would start on the origin's pages
	Settings *background.Settings `json:"settings,omitempty"`  // settings read from the origin's sys config endpoint
	ImageURL string               `json:"image_url,omitempty"` // image the rotator would show next
	Error    string               `json:"error,omitempty"`     // why the rotator would not start or show an image
}
