package errs

import (
	"errors"
	"testing"
)

func TestRetryable(t *testing.T) {
	t.Parallel()

	if !Retryable(Transport("dial", errors.New("refused"))) {
		t.Error("transport error should be retryable")
	}
	if !Retryable(SequenceGap("asset1", 5, 9)) {
		t.Error("sequence gap should be retryable")
	}
	if Retryable(Validation("bad price")) {
		t.Error("validation error should not be retryable")
	}
	if Retryable(KillSwitch("drawdown exceeded")) {
		t.Error("kill switch should not be retryable")
	}
}

func TestWrappingDiscrimination(t *testing.T) {
	t.Parallel()

	err := RiskStop("0xabc", "inventory over cap")
	if !errors.Is(err, ErrRiskStop) {
		t.Error("expected errors.Is to find ErrRiskStop")
	}
	if errors.Is(err, ErrKillSwitch) {
		t.Error("RiskStop must not match ErrKillSwitch")
	}
}
