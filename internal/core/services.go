package core

type Services struct {
	Schedule          *ScheduleService
	MaintenanceWindow *MaintenanceWindowService
	Job               *JobService
	Workflow          *WorkflowService
	Execution         *ExecutionService
	EscalationPolicy  *EscalationPolicyService
	Quarantine        *QuarantineService
	Alert             *AlertService
	Node              *NodeService
}

func NewServices(db DB) *Services {
	return &Services{
		Schedule:          NewScheduleService(db),
		MaintenanceWindow: NewMaintenanceWindowService(db),
		Job:               NewJobService(db),
		Workflow:          NewWorkflowService(db),
		Execution:         NewExecutionService(db),
		EscalationPolicy:  NewEscalationPolicyService(db),
		Quarantine:        NewQuarantineService(db),
		Alert:             NewAlertService(db),
		Node:              NewNodeService(db),
	}
}
