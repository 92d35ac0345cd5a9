package log

// Common field names for structured logging
const (
	FieldService     = "service"
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status"
	FieldDuration    = "duration"
	FieldRemoteAddr  = "remote_addr"
	FieldUserID      = "user_id"
	FieldAccountID   = "account_id"
	FieldTxID        = "transaction_id"
	FieldTemplateID  = "template_id"
	FieldWorkerID    = "worker_id"
	FieldJob         = "job"
	FieldAsOf        = "as_of"
	FieldOccurrence  = "occurrence"
	FieldQueue       = "queue"
	FieldExchange    = "exchange"
	FieldCreated     = "created"
	FieldCompleted   = "completed"
	FieldErrorsCount = "errors"
)

// Component names
const (
	ComponentAPI       = "api"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentLedger    = "ledger"
	ComponentRecurring = "recurring"
	ComponentScheduler = "scheduler"
	ComponentWorker    = "worker"
	ComponentAMQP      = "amqp"
	ComponentTelemetry = "telemetry"
	ComponentListener  = "pg_listener"
)
