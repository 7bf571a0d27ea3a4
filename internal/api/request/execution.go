package request

type TriggerExecution struct {
	WorkflowID  string            `json:"workflow_id" validate:"required"`
	NodeID      string            `json:"node_id" validate:"required"`
	TriggeredBy string            `json:"triggered_by" validate:"omitempty,max=255"`
	Context     map[string]string `json:"context"`
}
