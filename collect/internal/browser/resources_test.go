package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	blocked := map[string]bool{"images": true, "fonts": true, "websocket": true}

	tests := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Media", false},
		{"Stylesheet", false},
		{"Document", false},
		{"WebSocket", true},
	}
	for _, tt := range tests {
		if got := shouldBlock(blocked, tt.resType); got != tt.want {
			t.Errorf("shouldBlock(%q): got %v, want %v", tt.resType, got, tt.want)
		}
	}
}

func TestTabOptionsDefaults(t *testing.T) {
	var o TabOptions
	o.defaults()
	if o.Width != 412 || o.Height != 823 || o.ScaleFactor != 1.75 {
		t.Errorf("defaults: got %+v", o)
	}
	if o.NavTimeout <= 0 {
		t.Error("nav timeout not set")
	}
}
