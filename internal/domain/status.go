package domain

// Status 类别当前的可用状态，每次都由计数与时间重新计算，不做存储。
type Status string

const (
	StatusAvailable        Status = "available"
	StatusDisabled         Status = "disabled"
	StatusDailyExhausted   Status = "daily_exhausted"
	StatusSessionExhausted Status = "session_exhausted"
	StatusCooling          Status = "cooling"
	StatusProviderNotReady Status = "provider_not_ready"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsAvailable() bool {
	return s == StatusAvailable
}
