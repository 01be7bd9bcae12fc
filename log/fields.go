package log

const (
	NamespaceKey = "zeebe"

	JobKeyKey             = NamespaceKey + ".job.key"
	JobStatusKey          = NamespaceKey + ".job.status"
	JobRetriesKey         = NamespaceKey + ".job.retries"
	ProcessInstanceKeyKey = NamespaceKey + ".process_instance.key"
	BpmnProcessIDKey      = NamespaceKey + ".process.bpmn_process_id"
	ElementIDKey          = NamespaceKey + ".element.id"
	TenantIDKey           = NamespaceKey + ".tenant.id"

	TaskTypeKey    = NamespaceKey + ".task.type"
	TaskHandlerKey = NamespaceKey + ".task.handler"
	WorkerNameKey  = NamespaceKey + ".worker.name"

	ErrorCodeKey = NamespaceKey + ".error.code"

	RPCKey        = NamespaceKey + ".rpc"
	BatchSizeKey  = NamespaceKey + ".poll.batch_size"
	ActiveJobsKey = NamespaceKey + ".poll.active_jobs"
	ActivatedKey  = NamespaceKey + ".poll.activated"
	RetryCountKey = NamespaceKey + ".connection.retries"
	DecoratorKey  = NamespaceKey + ".decorator.index"

	DurationKey = NamespaceKey + ".duration_ms"
)
