package types

// Event kinds carried by the ingest progress stream. The contract is shared
// with the web client; new kinds may be added but these names are fixed.
const (
	EventStatus     = "status"
	EventLog        = "log"
	EventItem       = "item"
	EventProgress   = "progress"
	EventBatchSaved = "batch_saved"
	EventError      = "error"
)

// Log levels for EventLog payloads.
const (
	LogLevelInfo    = "info"
	LogLevelSuccess = "success"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Machine-readable error codes for EventError payloads. The client uses
// these to distinguish "retry later" from "this document failed to parse".
const (
	ErrCodeQuotaExceeded    = "quota_exceeded"
	ErrCodeExtractionFailed = "extraction_failed"
	ErrCodeDedupFetchFailed = "dedup_fetch_failed"
	ErrCodeSaveFailed       = "save_failed"
)

// Pipeline stages reported through EventStatus.
const (
	StageExtracting = "extracting"
	StageDedup      = "dedup"
	StageSaving     = "saving"
	StageComplete   = "complete"
)

// IngestEvent is one server-to-client event. Payload is one of the
// *Payload structs below, keyed by Type.
type IngestEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

type LogPayload struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

type ItemPayload struct {
	Index    int         `json:"index"`
	ItemType string      `json:"item_type"`
	Item     interface{} `json:"item"`
}

type ProgressPayload struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Detail  string `json:"detail,omitempty"`
}

type BatchSavedPayload struct {
	IDs   []string `json:"ids"`
	Batch int      `json:"batch"`
	Saved int      `json:"saved"`
	Total int      `json:"total"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// EventSender delivers one event to the client. Implementations must be safe
// to call from the goroutine running the pipeline; delivery failures are the
// transport's problem and are not reported back to the pipeline.
type EventSender func(event IngestEvent)

func StatusEvent(stage, message string) IngestEvent {
	return IngestEvent{Type: EventStatus, Payload: StatusPayload{Stage: stage, Message: message}}
}

func LogEvent(level, message string) IngestEvent {
	return IngestEvent{Type: EventLog, Payload: LogPayload{Message: message, Level: level}}
}

func ItemEvent(index int, itemType string, item interface{}) IngestEvent {
	return IngestEvent{Type: EventItem, Payload: ItemPayload{Index: index, ItemType: itemType, Item: item}}
}

func ProgressEvent(current, total int, detail string) IngestEvent {
	return IngestEvent{Type: EventProgress, Payload: ProgressPayload{Current: current, Total: total, Detail: detail}}
}

func BatchSavedEvent(ids []string, batch, saved, total int) IngestEvent {
	return IngestEvent{Type: EventBatchSaved, Payload: BatchSavedPayload{IDs: ids, Batch: batch, Saved: saved, Total: total}}
}

func ErrorEvent(code, message string) IngestEvent {
	return IngestEvent{Type: EventError, Payload: ErrorPayload{Message: message, Code: code}}
}
