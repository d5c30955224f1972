package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidSignal       ErrorCode = 100
	ErrCodeInvalidPrice        ErrorCode = 101
	ErrCodeInvalidSizeFraction ErrorCode = 102
	ErrCodeInvalidParameter    ErrorCode = 103
	ErrCodeInvalidTimestamp    ErrorCode = 104

	// Configuration errors (200-299)
	ErrCodeInvalidConfiguration ErrorCode = 200
	ErrCodeCostModelNotFound    ErrorCode = 201
	ErrCodeInvalidCostModel     ErrorCode = 202
	ErrCodeConfigParseFailed    ErrorCode = 203

	// Engine errors (300-399)
	ErrCodeEngineNotInitialized ErrorCode = 300
	ErrCodePositionConflict     ErrorCode = 301

	// Ledger errors (400-499)
	ErrCodeLedgerNil         ErrorCode = 400
	ErrCodeLedgerQueryFailed ErrorCode = 401
	ErrCodeLedgerWriteFailed ErrorCode = 402

	// Metrics errors (500-599)
	ErrCodeEmptyLedger ErrorCode = 500

	// Optimizer errors (600-699)
	ErrCodeEmptyGrid        ErrorCode = 600
	ErrCodeInvalidObjective ErrorCode = 601

	// Signal source errors (700-799)
	ErrCodeSignalParseFailed ErrorCode = 700
	ErrCodeSignalOutOfOrder  ErrorCode = 701
)
