package request

type RegisterNode struct {
	Hostname string   `json:"hostname" validate:"required,hostname_rfc1123"`
	Mesh     string   `json:"mesh" validate:"omitempty,slug"`
	Groups   []string `json:"groups" validate:"omitempty,dive,slug"`
}

type SetNodeStatus struct {
	Online *bool `json:"online" validate:"required"`
}

type QuarantineNode struct {
	Reason string `json:"reason" validate:"required,max=1024"`
}
