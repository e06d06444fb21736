package domain

// OutcomeKind provider 异步回调的结果类型，只有这四种。
type OutcomeKind string

const (
	OutcomeReady     OutcomeKind = "ready"
	OutcomeFulfilled OutcomeKind = "fulfilled"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomeDismissed OutcomeKind = "dismissed"
)

func (k OutcomeKind) String() string {
	return string(k)
}

// Outcome provider 发出的结果信号。
//
// Ready 不携带 Category，Rejected 携带 Reason。
// RequestId 原样回传发起请求时的 id，用于匹配结果与请求。
type Outcome struct {
	Kind      OutcomeKind
	Category  Category
	RequestId string
	Reason    string
}

// WithRequest 返回带有请求 id 的副本。
func (o Outcome) WithRequest(requestId string) Outcome {
	o.RequestId = requestId
	return o
}

func Ready() Outcome {
	return Outcome{Kind: OutcomeReady}
}

func Fulfilled(c Category) Outcome {
	return Outcome{Kind: OutcomeFulfilled, Category: c}
}

func Rejected(c Category, reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Category: c, Reason: reason}
}

func Dismissed(c Category) Outcome {
	return Outcome{Kind: OutcomeDismissed, Category: c}
}
