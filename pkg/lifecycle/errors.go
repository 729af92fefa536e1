package lifecycle

import "errors"

var (
	ErrAlreadyExists              = errors.New("lifecycle: intent already exists in a terminal state")
	ErrInsufficientNativeReward   = errors.New("lifecycle: insufficient native reward supplied")
	ErrInsufficientTokenAllowance = errors.New("lifecycle: insufficient token allowance or balance")
	ErrForbiddenFundFor           = errors.New("lifecycle: fund_for is forbidden for a non-empty native-value vault")
	ErrUnauthorizedWithdrawal     = errors.New("lifecycle: no proof record, or reward already in a terminal state")
	ErrIntentNotExpired           = errors.New("lifecycle: reward deadline has not yet passed")
	ErrIntentAlreadyProven        = errors.New("lifecycle: refund forbidden, a proof record already exists")
	ErrZeroRefundTokenBalance     = errors.New("lifecycle: token has a zero balance, nothing to recover")
	ErrForbiddenRecoverToken      = errors.New("lifecycle: recover_token is forbidden while native value is pending on a non-terminal reward")
	ErrArrayLengthMismatch        = errors.New("lifecycle: route hashes and rewards arrays differ in length")
)
