package hal

/*-------------------------------------------------------------
 *
 * Purpose:	Serial device discovery for ravenctl: enumerate tty
 *		candidates for the FC link and radio companion board
 *		instead of requiring the user to know the /dev/tty* node.
 *
 *--------------------------------------------------------------*/

import (
	"github.com/jochenvg/go-udev"
)

// SerialDevice describes one candidate tty node found via udev.
type SerialDevice struct {
	DevNode string
	Vendor  string
	Model   string
	Serial  string
}

// DiscoverSerialDevices enumerates every device in the "tty" subsystem
// that has a device node. Devices are not filtered by parent bus, so
// USB-serial adapters are listed alongside built-in and virtual ttys.
func DiscoverSerialDevices() ([]SerialDevice, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()

	if err := e.AddMatchSubsystem("tty"); err != nil {
		return nil, err
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, err
	}

	var out []SerialDevice
	for _, d := range devices {
		node := d.Devnode()
		if node == "" {
			continue
		}

		dev := SerialDevice{
			DevNode: node,
			Vendor:  d.PropertyValue("ID_VENDOR"),
			Model:   d.PropertyValue("ID_MODEL"),
			Serial:  d.PropertyValue("ID_SERIAL_SHORT"),
		}

		out = append(out, dev)
	}

	return out, nil
}
