package errs

import (
	"errors"
)

var (
	ErrInvalidParam        = errors.New("[jreward] invalid param")
	ErrInvalidCategory     = errors.New("[jreward] invalid category")
	ErrDailyStatsNotFound  = errors.New("[jreward] daily stats not found")
	ErrUnknownStatsBackend = errors.New("[jreward] unknown stats backend")
	ErrProviderInitFailed  = errors.New("[jreward] provider initialization failed")
	ErrProviderRequestFail = errors.New("[jreward] provider request failed")
	ErrNotAvailable        = errors.New("not available")
)
