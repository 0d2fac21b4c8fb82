package dto

type ResolveReq struct {
	Market  string `json:"market"`
	Outcome string `json:"outcome"` // up | down
}

type ResolveResp struct {
	Status string `json:"status"` // RESOLVED | REJECTED
	Reason string `json:"reason,omitempty"`
}

const (
	StatusResolved = "RESOLVED"
	StatusRejected = "REJECTED"
)
