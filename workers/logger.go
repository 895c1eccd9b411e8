package workers

import "github.com/amirsamani13/househunt-hq-sub000/models"

// LogFunc writes a structured line to the operational log store.
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger does nothing (default).
var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}
