package tracing

const (
	JobKey             = "job.key"
	JobType            = "job.type"
	JobRetries         = "job.retries"
	ProcessInstanceKey = "process_instance.key"
	BpmnProcessID      = "process.bpmn_process_id"
	ElementID          = "element.id"

	Worker   = "worker.name"
	TenantID = "tenant.id"

	RPC = "rpc.method"
)
