package metrickeys

const (
	Prefix = "zeebe."

	// Jobs
	JobActivated   = Prefix + "job.activated"
	JobCompleted   = Prefix + "job.completed"
	JobFailed      = Prefix + "job.failed"
	JobErrorThrown = Prefix + "job.error_thrown"
	JobExpired     = Prefix + "job.expired"

	JobHandlerDuration = Prefix + "job.handler.duration"

	// Pollers
	PollerErrors = Prefix + "poller.errors"
	TaskRunning  = Prefix + "task.running"

	// Adapter
	GatewayRequestDuration = Prefix + "gateway.request.duration"
	GatewayRequestFailed   = Prefix + "gateway.request.failed"
)

// Tag names
const (
	TaskType = "task_type"

	Worker = "worker"

	RPC = "rpc"

	// gRPC status code of a gateway request
	Code = "code"

	// Final job status after the handler returned
	Status = "status"

	// Error kind reported by the gateway or returned by a handler
	ErrorKind = "error_kind"
)
