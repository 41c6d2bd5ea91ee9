//go:build !darwin && !null

package pasteboard

import "github.com/labi-le/pasteboard/pkg/pasteboard/native"

// defaultDriver has no general pasteboard to offer outside macOS.
func defaultDriver() native.Driver {
	return nil
}
