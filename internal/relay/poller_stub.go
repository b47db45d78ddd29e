//go:build !linux

package relay

// NewPoller is unsupported on this platform.
func NewPoller() (Poller, error) {
	return nil, ErrUnsupportedPlatform
}
