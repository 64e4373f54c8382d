// Package fcbus implements the companion-bus framers that carry channel,
// telemetry and MSP traffic between the radio and the flight controller
// over a physical serial wire: CRSF (C6), SmartPort/S.Port (C5) and
// FPort (C7).
package fcbus

/*-------------------------------------------------------------
 *
 * Purpose:	CRSF protocol framing: header + payload + CRC8/DVB-S2 over
 *		a half/full duplex serial link, plus the 16-channel 11-bit
 *		packed channel frame.
 *
 *--------------------------------------------------------------*/

import (
	"github.com/ravenlrs/raven/wire"
)

const (
	CRSFRXBaudrate    = 420000
	CRSFNumChannels   = 16
	CRSFChannelMin    = 172
	CRSFChannelMid    = 992
	CRSFChannelMax    = 1811
	crsfPayloadMax    = 62
	crsfNotCounted    = 2 // addr + frame_size, not counted in frame_size
	CRSFFrameSizeMax  = crsfPayloadMax + crsfNotCounted
	CRSFMSPReqSize    = 8
	CRSFMSPRespSize   = 58
)

// CRSFFrameType is the CRSF frame type byte.
type CRSFFrameType byte

const (
	CRSFFrameGPS               CRSFFrameType = 0x02
	CRSFFrameBatterySensor     CRSFFrameType = 0x08
	CRSFFrameLinkStatistics    CRSFFrameType = 0x14
	CRSFFrameRCChannelsPacked  CRSFFrameType = 0x16
	CRSFFrameAttitude          CRSFFrameType = 0x1E
	CRSFFrameFlightMode        CRSFFrameType = 0x21
	CRSFFrameDevicePing        CRSFFrameType = 0x28
	CRSFFrameDeviceInfo        CRSFFrameType = 0x29
	CRSFFrameParamSettingEntry CRSFFrameType = 0x2B
	CRSFFrameParamRead         CRSFFrameType = 0x2C
	CRSFFrameParamWrite        CRSFFrameType = 0x2D
	CRSFFrameCommand           CRSFFrameType = 0x32
	CRSFFrameMSPReq            CRSFFrameType = 0x7A
	CRSFFrameMSPResp           CRSFFrameType = 0x7B
	CRSFFrameMSPWrite          CRSFFrameType = 0x7C
)

// CRSFAddr is a CRSF device address.
type CRSFAddr byte

const (
	CRSFAddrBroadcast          CRSFAddr = 0x00
	CRSFAddrFlightController   CRSFAddr = 0xC8
	CRSFAddrRadioTransmitter   CRSFAddr = 0xEA
	CRSFAddrReceiver           CRSFAddr = 0xEC
	CRSFAddrTransmitter        CRSFAddr = 0xEE
)

// CRSFFrame is a decoded CRSF frame: address, type and payload (CRC
// stripped).
type CRSFFrame struct {
	Addr    CRSFAddr
	Type    CRSFFrameType
	Payload []byte
}

func crsfFrameCRC(frameType CRSFFrameType, payload []byte) byte {
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, byte(frameType))
	buf = append(buf, payload...)
	return wire.CRC8DVBS2Bytes(buf)
}

// EncodeCRSFFrame serializes a frame: addr, frame_size, type, payload, crc.
func EncodeCRSFFrame(addr CRSFAddr, frameType CRSFFrameType, payload []byte) []byte {
	frameSize := len(payload) + 2 // type + crc
	buf := make([]byte, 0, 2+frameSize)
	buf = append(buf, byte(addr), byte(frameSize), byte(frameType))
	buf = append(buf, payload...)
	buf = append(buf, crsfFrameCRC(frameType, payload))
	return buf
}

// CRSFPort decodes a stream of CRSF frames out of a serial byte stream,
// resyncing past garbage the same way crsf_port_decode does.
type CRSFPort struct {
	buf    [CRSFFrameSizeMax * 2]byte
	bufPos int
}

// Feed appends newly read bytes and decodes every complete frame found,
// calling onFrame for each one whose CRC checks out.
func (p *CRSFPort) Feed(data []byte, onFrame func(CRSFFrame)) {
	n := copy(p.buf[p.bufPos:], data)
	p.bufPos += n
	p.decode(onFrame)
}

func (p *CRSFPort) decode(onFrame func(CRSFFrame)) {
	start := 0
	end := p.bufPos
	for end-start >= 2 {
		frameLength := int(p.buf[start+1])
		totalFrameSize := frameLength + crsfNotCounted
		if frameLength < 2 || totalFrameSize > CRSFFrameSizeMax {
			start++
			continue
		}
		if end-start < totalFrameSize {
			break
		}
		addr := CRSFAddr(p.buf[start])
		frameType := CRSFFrameType(p.buf[start+2])
		payload := append([]byte(nil), p.buf[start+3:start+totalFrameSize-1]...)
		receivedCRC := p.buf[start+totalFrameSize-1]
		expectedCRC := crsfFrameCRC(frameType, payload)
		if receivedCRC == expectedCRC {
			onFrame(CRSFFrame{Addr: addr, Type: frameType, Payload: payload})
			start += totalFrameSize
		} else {
			start++
		}
	}
	if start > 0 {
		copy(p.buf[:], p.buf[start:end])
		p.bufPos -= start
	}
}

// PackCRSFChannels packs up to 16 channel values (11-bit each,
// CRSFChannelMin..CRSFChannelMax) into the 22-byte CRSF channels payload.
func PackCRSFChannels(channels [CRSFNumChannels]uint16) []byte {
	buf := make([]byte, 22)
	var bitPos uint
	for _, ch := range channels {
		v := uint32(ch) & 0x7ff
		bytePos := bitPos / 8
		bitOffset := bitPos % 8
		buf[bytePos] |= byte(v << bitOffset)
		if bitOffset+11 > 8 {
			buf[bytePos+1] |= byte(v >> (8 - bitOffset))
		}
		if bitOffset > 16-11 {
			buf[bytePos+2] |= byte(v >> (16 - bitOffset))
		}
		bitPos += 11
	}
	return buf
}

// UnpackCRSFChannels reverses PackCRSFChannels.
func UnpackCRSFChannels(payload []byte) [CRSFNumChannels]uint16 {
	var out [CRSFNumChannels]uint16
	var bitPos uint
	for i := range out {
		bytePos := bitPos / 8
		bitOffset := bitPos % 8
		v := uint32(payload[bytePos]) >> bitOffset
		if bitOffset+11 > 8 {
			v |= uint32(payload[bytePos+1]) << (8 - bitOffset)
		}
		if bitOffset > 16-11 {
			v |= uint32(payload[bytePos+2]) << (16 - bitOffset)
		}
		out[i] = uint16(v & 0x7ff)
		bitPos += 11
	}
	return out
}
