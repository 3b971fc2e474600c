// Package errs defines the typed error taxonomy shared by every layer of
// the bot: transport, protocol, validation, and risk-stop conditions all
// wrap one of these sentinels so callers can discriminate with errors.Is
// and errors.As instead of string-matching.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", Kind) at the call
// site rather than returning them bare, so the message carries context.
var (
	// ErrValidation marks a request that failed local validation before
	// it was ever sent (bad price, size below minimum, stale market).
	ErrValidation = errors.New("validation error")

	// ErrBalance marks a rejection due to insufficient balance or
	// allowance on-chain.
	ErrBalance = errors.New("balance error")

	// ErrTransport marks a network-level failure: timeout, connection
	// reset, DNS, TLS. Always retryable with backoff.
	ErrTransport = errors.New("transport error")

	// ErrProtocol marks a response that doesn't conform to the expected
	// wire shape: unexpected status code, malformed JSON, missing field.
	ErrProtocol = errors.New("protocol error")

	// ErrSequenceGap marks a detected gap in a sequenced feed, forcing a
	// resync (REST snapshot) before trusting further deltas.
	ErrSequenceGap = errors.New("sequence gap")

	// ErrStaleData marks market data older than the configured staleness
	// threshold; quoting must pause until fresh data arrives.
	ErrStaleData = errors.New("stale data")

	// ErrRiskStop marks a risk check that failed softly: the caller
	// should widen/pull quotes for the offending market but the process
	// keeps running.
	ErrRiskStop = errors.New("risk stop")

	// ErrKillSwitch marks a risk check that failed hard: all quoting
	// must halt until an operator resets the kill switch
	// (risk.Manager.ResetKillSwitch).
	ErrKillSwitch = errors.New("kill switch active")
)

// Transport wraps an underlying network error as ErrTransport.
func Transport(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// Protocol wraps an unexpected-response error as ErrProtocol.
func Protocol(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrProtocol, err)
}

// Validation builds an ErrValidation with a formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Balance builds an ErrBalance with a formatted reason.
func Balance(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrBalance)
}

// SequenceGap builds an ErrSequenceGap naming the asset and the observed gap.
func SequenceGap(assetID string, last, got uint64) error {
	return fmt.Errorf("asset %s: sequence jumped %d -> %d: %w", assetID, last, got, ErrSequenceGap)
}

// StaleData builds an ErrStaleData naming the asset and its age.
func StaleData(assetID string, ageSeconds float64) error {
	return fmt.Errorf("asset %s: stale for %.1fs: %w", assetID, ageSeconds, ErrStaleData)
}

// RiskStop builds an ErrRiskStop naming the market and the failed check.
func RiskStop(market, reason string) error {
	return fmt.Errorf("market %s: %s: %w", market, reason, ErrRiskStop)
}

// KillSwitch builds an ErrKillSwitch naming the reason it tripped.
func KillSwitch(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrKillSwitch)
}

// Retryable reports whether err represents a condition worth retrying
// with backoff (transport failures and sequence gaps), as opposed to one
// that needs operator or strategy-level intervention.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrSequenceGap)
}
