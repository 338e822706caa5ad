package datagram

import "errors"

// Typed error-kind results per §7. TxTimeout, AckMissing and
// MaxRxFailsExceeded are surfaced to the session layer as failures;
// ChecksumMismatch, AddressFiltered and DuplicateFragment are recovered
// from locally and never escape Receive as anything the caller needs to
// treat specially beyond "nothing was delivered this round".
var (
	// ErrTxTimeout means tx_done never asserted within the transmit
	// deadline.
	ErrTxTimeout = errors.New("datagram: transmit timeout")

	// ErrRxTimeout means no frame arrived within the receive deadline.
	ErrRxTimeout = errors.New("datagram: receive timeout")

	// ErrAddressFiltered means a frame arrived addressed to a node other
	// than us or broadcast, and was dropped.
	ErrAddressFiltered = errors.New("datagram: frame address filtered")

	// ErrDuplicateFrame means a frame's id matched the last-seen id from
	// its source and it carried the retry flag, so it was suppressed.
	ErrDuplicateFrame = errors.New("datagram: duplicate frame suppressed")

	// ErrAckMissing means a unicast send_with_ack exhausted its retries
	// without a matching ACK.
	ErrAckMissing = errors.New("datagram: no matching ack received")
)
