package log

// 結構化日誌的共用欄位名稱。PIN 與 digest 不得出現在任何欄位。
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldAccountID = "account_id"
	FieldCounterID = "counter_id"
	FieldAmount    = "amount_minor"
	FieldPath      = "path"
	FieldRecords   = "records"
	FieldBackend   = "backend"
	FieldEventID   = "event_id"
	FieldError     = "error"
)

// 元件名稱
const (
	ComponentApp     = "app"
	ComponentBank    = "bank"
	ComponentStorage = "storage"
	ComponentEvents  = "events"
	ComponentHTTP    = "http"
	ComponentCLI     = "cli"
)

// 操作名稱
const (
	OpOpen     = "open"
	OpBalance  = "balance"
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpTransfer = "transfer"
	OpRename   = "rename"
	OpList     = "list"
	OpLoad     = "load"
	OpSave     = "save"
	OpPublish  = "publish"
)
