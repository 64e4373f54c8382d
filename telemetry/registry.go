package telemetry

/*-------------------------------------------------------------
 *
 * Purpose:	Telemetry ID space and typed value storage: downlink IDs
 *		(FC -> RX -> TX) and uplink IDs (TX -> RX -> FC), each with
 *		a fixed scalar type, backing a Slot that tracks dirty/ack
 *		state for transmit scheduling.
 *
 *--------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// ValueType is the scalar wire type of one telemetry ID.
type ValueType int

const (
	TypeUint8 ValueType = iota + 1
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeString
)

// StringMaxSize is the maximum length (excluding the trailing NUL) of a
// TypeString telemetry value.
const StringMaxSize = 32

// SNRMultiplier converts a TX/RX SNR reading (dB) into its int8 wire form.
const SNRMultiplier = 4.0

// UplinkMask marks a telemetry ID as travelling TX -> RX -> FC.
const UplinkMask = 0x80

// ID identifies one telemetry value. Downlink IDs occupy [0, 0x80);
// uplink IDs occupy [0x80, 0x80+UplinkCount).
type ID int

// IsUplink reports whether id travels TX -> RX -> FC.
func (id ID) IsUplink() bool {
	return id&UplinkMask != 0
}

// Downlink IDs: FC -> RX -> TX.
const (
	IDCraftName ID = iota
	IDFlightModeName
	IDBatVoltage
	IDAvgCellVoltage
	IDCurrent
	IDCurrentDrawn
	IDBatCapacity
	IDBatRemainingPercent
	IDAltitude
	IDVerticalSpeed
	IDHeading
	IDAccX
	IDAccY
	IDAccZ
	IDAttitudeX
	IDAttitudeY
	IDAttitudeZ
	IDGPSFix
	IDGPSNumSats
	IDGPSLat
	IDGPSLon
	IDGPSAlt
	IDGPSSpeed
	IDGPSHeading
	IDGPSHDOP
	IDRXRSSIAnt1
	IDRXRSSIAnt2
	IDRXLinkQuality
	IDRXSNR
	IDRXActiveAnt
	IDRXRFPower
)

// DownlinkCount is the number of downlink telemetry IDs.
const DownlinkCount = 31

// Uplink IDs: TX -> RX -> FC.
const (
	IDPilotName ID = UplinkMask + iota
	IDTXRSSIAnt1
	IDTXLinkQuality
	IDTXSNR
	IDTXRFPower
)

// UplinkCount is the number of uplink telemetry IDs.
const UplinkCount = 5

// GPSFixType is the value carried by IDGPSFix.
type GPSFixType uint8

const (
	GPSFixNone GPSFixType = iota
	GPSFix2D
	GPSFix3D
)

type idMeta struct {
	name string
	typ  ValueType
}

var downlinkMeta = map[ID]idMeta{
	IDCraftName:           {"CRAFT_NAME", TypeString},
	IDFlightModeName:      {"FLIGHT_MODE_NAME", TypeString},
	IDBatVoltage:          {"BAT_VOLTAGE", TypeUint16},
	IDAvgCellVoltage:      {"AVG_CELL_VOLTAGE", TypeUint16},
	IDCurrent:             {"CURRENT", TypeInt16},
	IDCurrentDrawn:        {"CURRENT_DRAWN", TypeInt32},
	IDBatCapacity:         {"BAT_CAPACITY", TypeUint16},
	IDBatRemainingPercent: {"BAT_REMAINING_P", TypeUint8},
	IDAltitude:            {"ALTITUDE", TypeInt32},
	IDVerticalSpeed:       {"VERTICAL_SPEED", TypeInt16},
	IDHeading:             {"HEADING", TypeUint16},
	IDAccX:                {"ACC_X", TypeInt32},
	IDAccY:                {"ACC_Y", TypeInt32},
	IDAccZ:                {"ACC_Z", TypeInt32},
	IDAttitudeX:           {"ATTITUDE_X", TypeInt16},
	IDAttitudeY:           {"ATTITUDE_Y", TypeInt16},
	IDAttitudeZ:           {"ATTITUDE_Z", TypeInt16},
	IDGPSFix:              {"GPS_FIX", TypeUint8},
	IDGPSNumSats:          {"GPS_NUM_SATS", TypeUint8},
	IDGPSLat:              {"GPS_LAT", TypeInt32},
	IDGPSLon:              {"GPS_LON", TypeInt32},
	IDGPSAlt:              {"GPS_ALT", TypeInt32},
	IDGPSSpeed:            {"GPS_SPEED", TypeUint16},
	IDGPSHeading:          {"GPS_HEADING", TypeUint16},
	IDGPSHDOP:             {"GPS_HDOP", TypeUint16},
	IDRXRSSIAnt1:          {"RX_RSSI_ANT1", TypeInt8},
	IDRXRSSIAnt2:          {"RX_RSSI_ANT2", TypeInt8},
	IDRXLinkQuality:       {"RX_LINK_QUALITY", TypeInt8},
	IDRXSNR:               {"RX_SNR", TypeInt8},
	IDRXActiveAnt:         {"RX_ACTIVE_ANT", TypeUint8},
	IDRXRFPower:           {"RX_RF_POWER", TypeInt8},
}

var uplinkMeta = map[ID]idMeta{
	IDPilotName:     {"PILOT_NAME", TypeString},
	IDTXRSSIAnt1:    {"TX_RSSI_ANT1", TypeInt8},
	IDTXLinkQuality: {"TX_LINK_QUALITY", TypeInt8},
	IDTXSNR:         {"TX_SNR", TypeInt8},
	IDTXRFPower:     {"TX_RF_POWER", TypeInt8},
}

func meta(id ID) (idMeta, bool) {
	if id.IsUplink() {
		m, ok := uplinkMeta[id]
		return m, ok
	}
	m, ok := downlinkMeta[id]
	return m, ok
}

// Type returns the scalar wire type of id.
func Type(id ID) ValueType {
	m, ok := meta(id)
	if !ok {
		panic(fmt.Sprintf("telemetry: unknown id %d", id))
	}
	return m.typ
}

// Name returns the human-readable name of id, e.g. "GPS_LAT".
func Name(id ID) string {
	m, ok := meta(id)
	if !ok {
		return fmt.Sprintf("UNKNOWN(%d)", int(id))
	}
	return m.name
}

// DataSize returns the wire size in bytes of id's scalar type, or 0 for
// the variable-sized TypeString.
func DataSize(id ID) int {
	switch Type(id) {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32:
		return 4
	case TypeString:
		return 0
	}
	return 0
}

// Value is the typed storage for one telemetry ID, a stand-in for the
// original's tagged union: exactly one field is meaningful, selected by
// the ID's registered type.
type Value struct {
	U8  uint8
	I8  int8
	U16 uint16
	I16 int16
	U32 uint32
	I32 int32
	Str string
}

// Slot pairs a Value with its DataState, the registry's storage unit
// for one telemetry ID.
type Slot struct {
	ID    ID
	Value Value
	State *DataState
}

// NewSlot returns an empty slot for id.
func NewSlot(id ID) *Slot {
	return &Slot{ID: id, State: NewDataState()}
}

func mustType(id ID, want ValueType) {
	if got := Type(id); got != want {
		panic(fmt.Sprintf("telemetry: id %s has type %v, not %v", Name(id), got, want))
	}
}

// Registry holds one Slot per registered telemetry ID.
type Registry struct {
	slots map[ID]*Slot
}

// NewRegistry builds a registry with a slot for every downlink and
// uplink ID.
func NewRegistry() *Registry {
	r := &Registry{slots: make(map[ID]*Slot, DownlinkCount+UplinkCount)}
	for id := range downlinkMeta {
		r.slots[id] = NewSlot(id)
	}
	for id := range uplinkMeta {
		r.slots[id] = NewSlot(id)
	}
	return r
}

// Slot returns the slot for id, or nil if id isn't registered.
func (r *Registry) Slot(id ID) *Slot {
	return r.slots[id]
}

// IDs returns every registered ID, downlink first then uplink, in a
// stable order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.slots))
	for id := ID(0); id < DownlinkCount; id++ {
		if _, ok := r.slots[id]; ok {
			ids = append(ids, id)
		}
	}
	for id := ID(UplinkMask); id < ID(UplinkMask+UplinkCount); id++ {
		if _, ok := r.slots[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func strTruncate(s string) string {
	if len(s) <= StringMaxSize {
		return s
	}
	return s[:StringMaxSize]
}

// Format renders a slot's value as a human-readable string.
func Format(id ID, v Value) string {
	switch Type(id) {
	case TypeUint8:
		return fmt.Sprintf("%d", v.U8)
	case TypeInt8:
		return fmt.Sprintf("%d", v.I8)
	case TypeUint16:
		return fmt.Sprintf("%d", v.U16)
	case TypeInt16:
		return fmt.Sprintf("%d", v.I16)
	case TypeUint32:
		return fmt.Sprintf("%d", v.U32)
	case TypeInt32:
		return fmt.Sprintf("%d", v.I32)
	case TypeString:
		return v.Str
	}
	return ""
}

// HasValue reports whether id has ever been written in r.
func (r *Registry) HasValue(id ID) bool {
	s := r.slots[id]
	return s != nil && s.State.HasValue()
}

// SetU8 stores v under id, tracking the change as of now. It reports
// whether the value changed. Panics if id isn't a TypeUint8 ID.
func (r *Registry) SetU8(id ID, v uint8, now time.Time) bool {
	mustType(id, TypeUint8)
	s := r.slots[id]
	changed := v != s.Value.U8
	s.Value.U8 = v
	s.State.Update(changed, now)
	return changed
}

// SetI8 stores v under id. Panics if id isn't a TypeInt8 ID.
func (r *Registry) SetI8(id ID, v int8, now time.Time) bool {
	mustType(id, TypeInt8)
	s := r.slots[id]
	changed := v != s.Value.I8
	s.Value.I8 = v
	s.State.Update(changed, now)
	return changed
}

// SetU16 stores v under id. Panics if id isn't a TypeUint16 ID.
func (r *Registry) SetU16(id ID, v uint16, now time.Time) bool {
	mustType(id, TypeUint16)
	s := r.slots[id]
	changed := v != s.Value.U16
	s.Value.U16 = v
	s.State.Update(changed, now)
	return changed
}

// SetI16 stores v under id. Panics if id isn't a TypeInt16 ID.
func (r *Registry) SetI16(id ID, v int16, now time.Time) bool {
	mustType(id, TypeInt16)
	s := r.slots[id]
	changed := v != s.Value.I16
	s.Value.I16 = v
	s.State.Update(changed, now)
	return changed
}

// SetU32 stores v under id. Panics if id isn't a TypeUint32 ID.
func (r *Registry) SetU32(id ID, v uint32, now time.Time) bool {
	mustType(id, TypeUint32)
	s := r.slots[id]
	changed := v != s.Value.U32
	s.Value.U32 = v
	s.State.Update(changed, now)
	return changed
}

// SetI32 stores v under id. Panics if id isn't a TypeInt32 ID.
func (r *Registry) SetI32(id ID, v int32, now time.Time) bool {
	mustType(id, TypeInt32)
	s := r.slots[id]
	changed := v != s.Value.I32
	s.Value.I32 = v
	s.State.Update(changed, now)
	return changed
}

// SetStr stores v under id, truncated to StringMaxSize. Panics if id
// isn't a TypeString ID.
func (r *Registry) SetStr(id ID, v string, now time.Time) bool {
	mustType(id, TypeString)
	s := r.slots[id]
	v = strTruncate(v)
	changed := v != s.Value.Str
	s.Value.Str = v
	s.State.Update(changed, now)
	return changed
}

// Get returns the raw Value and DataState stored under id.
func (r *Registry) Get(id ID) (Value, *DataState) {
	s := r.slots[id]
	if s == nil {
		return Value{}, nil
	}
	return s.Value, s.State
}

// MarshalValue serializes v in id's wire form: little-endian scalar
// bytes, or the raw (non-NUL-terminated) string bytes for TypeString.
func MarshalValue(id ID, v Value) []byte {
	switch Type(id) {
	case TypeUint8:
		return []byte{v.U8}
	case TypeInt8:
		return []byte{byte(v.I8)}
	case TypeUint16:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, v.U16)
		return buf
	case TypeInt16:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v.I16))
		return buf
	case TypeUint32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, v.U32)
		return buf
	case TypeInt32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.I32))
		return buf
	case TypeString:
		return []byte(v.Str)
	}
	return nil
}

// UnmarshalValue parses data in id's wire form. It reports whether data
// had the expected length for id's scalar type (always true for
// TypeString, which is variable-length).
func UnmarshalValue(id ID, data []byte) (Value, bool) {
	var v Value
	switch Type(id) {
	case TypeUint8:
		if len(data) != 1 {
			return v, false
		}
		v.U8 = data[0]
	case TypeInt8:
		if len(data) != 1 {
			return v, false
		}
		v.I8 = int8(data[0])
	case TypeUint16:
		if len(data) != 2 {
			return v, false
		}
		v.U16 = binary.LittleEndian.Uint16(data)
	case TypeInt16:
		if len(data) != 2 {
			return v, false
		}
		v.I16 = int16(binary.LittleEndian.Uint16(data))
	case TypeUint32:
		if len(data) != 4 {
			return v, false
		}
		v.U32 = binary.LittleEndian.Uint32(data)
	case TypeInt32:
		if len(data) != 4 {
			return v, false
		}
		v.I32 = int32(binary.LittleEndian.Uint32(data))
	case TypeString:
		v.Str = strTruncate(string(data))
	}
	return v, true
}

// String renders the registry's contents for debugging/snapshots.
func (r *Registry) String() string {
	var b strings.Builder
	for _, id := range r.IDs() {
		s := r.slots[id]
		if !s.State.HasValue() {
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", Name(id), Format(id, s.Value))
	}
	return b.String()
}
