package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "◉" // Host collected
	SymbolFail     = "✕" // Host failed
	SymbolPending  = "◇" // Not yet attempted
	SymbolProgress = "◆" // In progress
	SymbolComplete = "●" // Done
	SymbolSkipped  = "⊖" // Skipped
	SymbolWarning  = "⚠"
)
