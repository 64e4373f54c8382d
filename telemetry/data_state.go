// Package telemetry implements the telemetry value registry (C10): the
// uplink/downlink telemetry ID space, typed value storage with dirty
// tracking for transmit scheduling, and operator-facing formatting.
package telemetry

/*-------------------------------------------------------------
 *
 * Purpose:	Dirty/ack tracking for one telemetry slot, used to decide
 *		which slot to send next (highest score wins) and to
 *		reconcile delivery acks coming back from the link.
 *
 *--------------------------------------------------------------*/

import "time"

// DataState tracks when a value last changed, was last sent, and
// whether its last transmission has been acknowledged.
type DataState struct {
	dirtySince time.Time
	lastSent   time.Time
	lastUpdate time.Time
	ackAtSeq   int
	ackRecv    bool
}

// NewDataState returns a DataState with no ack in flight.
func NewDataState() *DataState {
	ds := &DataState{}
	ds.ResetAck()
	return ds
}

// Score ranks this slot's transmit priority: dirty slots accrue value
// 50x faster than clean ones, so a value that keeps changing while
// unsent quickly outranks a stale-but-resendable one.
func (ds *DataState) Score(now time.Time) int64 {
	if !ds.dirtySince.IsZero() {
		return int64(now.Sub(ds.dirtySince))*50 + int64(now.Sub(ds.lastSent))
	}
	return int64(now.Sub(ds.lastSent))
}

// Update records a write from the input side: changed marks the value
// as dirty (cancelling any pending ack) the first time it flips.
func (ds *DataState) Update(changed bool, now time.Time) {
	if changed {
		ds.ackAtSeq = -1
		ds.ackRecv = false
		if ds.dirtySince.IsZero() {
			ds.dirtySince = now
		}
	}
	ds.lastUpdate = now
}

// Sent records that the value was just transmitted at sequence ackAtSeq.
func (ds *DataState) Sent(ackAtSeq int, now time.Time) {
	ds.ackAtSeq = ackAtSeq
	ds.dirtySince = time.Time{}
	ds.lastSent = now
}

// StopAck cancels any in-flight ack wait without affecting ackRecv.
func (ds *DataState) StopAck() {
	ds.ackAtSeq = -1
}

// ResetAck cancels any in-flight ack wait and clears a previously
// received ack.
func (ds *DataState) ResetAck() {
	ds.StopAck()
	ds.ackRecv = false
}

// UpdateAckReceived marks the ack as received if seq matches the
// sequence number the value was last sent at.
func (ds *DataState) UpdateAckReceived(seq int) {
	if !ds.ackRecv && ds.ackAtSeq >= 0 && ds.ackAtSeq == seq {
		ds.ackRecv = true
		ds.ackAtSeq = -1
	}
}

// IsAckReceived reports whether the last sent value has been acked.
func (ds *DataState) IsAckReceived() bool {
	return ds.ackRecv
}

// IsDirty reports whether the value has changed since it was last sent.
func (ds *DataState) IsDirty() bool {
	return !ds.dirtySince.IsZero()
}

// HasValue reports whether the slot has ever been written.
func (ds *DataState) HasValue() bool {
	return !ds.lastUpdate.IsZero()
}

// LastUpdate returns the time of the last Update call.
func (ds *DataState) LastUpdate() time.Time {
	return ds.lastUpdate
}
