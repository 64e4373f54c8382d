package air

/*-------------------------------------------------------------
 *
 * Purpose:	Pairing addresses/keys and the bind packet exchanged during
 *		pairing.
 *
 * Grounded on original_source/main/air/air.c (air_addr_format,
 * air_key_generate, air_bind_packet_prepare/validate, air_sync_word).
 *
 *--------------------------------------------------------------*/

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/ravenlrs/raven/wire"
)

// ProtocolVersion is the bind packet's wire version.
const ProtocolVersion = 0

const bindPacketMarker = "RVN"

// Capability is a bitfield of radio/hardware capabilities advertised in
// a bind packet.
type Capability uint16

const (
	CapFrequency433MHz Capability = 1 << iota
	CapFrequency868MHz
	CapFrequency915MHz
	CapP2P24GHzWiFi
	CapButton
	CapScreen
	CapBattery
)

// Addr is a 6-byte pairing address, identifying a peer across power
// cycles.
type Addr [6]byte

// String renders addr as "XX:XX:XX:XX:XX:XX".
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Key is a 32-bit pairing key, a shared secret that derives the radio
// sync word and is mixed into every air-packet CRC.
type Key uint32

// GenerateKey returns a fresh non-zero pairing key from a CSPRNG. A key
// of 0 is invalid, since the CRC it derives must not fold to a fixed
// constant.
func GenerateKey() (Key, error) {
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		if k := Key(binary.LittleEndian.Uint32(buf[:])); k != 0 {
			return k, nil
		}
	}
}

func (k Key) bytes() []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(k))
	return buf[:]
}

// SyncWord derives the LoRa sync word from key, so mispaired radios
// desync at the physical layer.
func SyncWord(key Key) byte {
	return wire.CRC8DVBS2Bytes(key.bytes())
}

// Pairing is a bound peer's address and shared key.
type Pairing struct {
	Addr Addr
	Key  Key
}

// BindPacket is exchanged during pairing.
type BindPacket struct {
	Version      uint8
	Addr         Addr
	Key          Key
	Capabilities Capability
	Channels     uint8
	MaxTXPower   int8
	Reserved     [4]byte
	CRC          byte
}

// marshalBody serializes everything from Version up to (excluding) CRC,
// the span the CRC covers.
func (p *BindPacket) marshalBody() []byte {
	buf := make([]byte, 0, 1+6+4+2+1+1+4)
	buf = append(buf, p.Version)
	buf = append(buf, p.Addr[:]...)
	buf = append(buf, p.Key.bytes()...)
	buf = append(buf, byte(p.MaxTXPower))
	var capBuf [2]byte
	binary.LittleEndian.PutUint16(capBuf[:], uint16(p.Capabilities))
	buf = append(buf, capBuf[:]...)
	buf = append(buf, p.Channels)
	buf = append(buf, p.Reserved[:]...)
	return buf
}

// Prepare fills in Reserved and CRC ahead of transmission.
func (p *BindPacket) Prepare() {
	p.Reserved = [4]byte{}
	p.CRC = wire.CRC8DVBS2Bytes(p.marshalBody())
}

// Validate reports whether the packet's CRC matches its body.
func (p *BindPacket) Validate() bool {
	return p.CRC == wire.CRC8DVBS2Bytes(p.marshalBody())
}

// GetPairing extracts the pairing record carried in the packet.
func (p *BindPacket) GetPairing() Pairing {
	return Pairing{Addr: p.Addr, Key: p.Key}
}

// Marshal serializes the full bind packet, including its "RVN" prefix
// and trailing CRC, for transmission over the radio.
func (p *BindPacket) Marshal() []byte {
	p.Prepare()
	buf := append([]byte(bindPacketMarker), p.marshalBody()...)
	return append(buf, p.CRC)
}

// UnmarshalBindPacket parses a bind packet and validates its prefix and
// CRC.
func UnmarshalBindPacket(data []byte) (*BindPacket, bool) {
	const headerLen = len(bindPacketMarker)
	if len(data) < headerLen+1+6+4+2+1+1+4+1 {
		return nil, false
	}
	if string(data[:headerLen]) != bindPacketMarker {
		return nil, false
	}
	data = data[headerLen:]

	p := &BindPacket{Version: data[0]}
	copy(p.Addr[:], data[1:7])
	p.Key = Key(binary.LittleEndian.Uint32(data[7:11]))
	p.MaxTXPower = int8(data[11])
	p.Capabilities = Capability(binary.LittleEndian.Uint16(data[12:14]))
	p.Channels = data[14]
	copy(p.Reserved[:], data[15:19])
	p.CRC = data[19]

	if !p.Validate() {
		return nil, false
	}
	return p, true
}
